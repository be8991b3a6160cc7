package worker

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid"
	"github.com/pkg/errors"
	"github.com/vx-labs/shuffle/coder"
	"go.uber.org/zap"
)

// Options are the execution options handed to reader factories.
type Options struct {
	// PrefetchValues makes iterator based backends load values ahead of use.
	PrefetchValues bool
	// PrefetchSize bounds the number of values loaded ahead.
	PrefetchSize int
}

func DefaultOptions() Options {
	return Options{PrefetchValues: true, PrefetchSize: 100}
}

// ReaderFactory builds a reader for one backend format.
type ReaderFactory interface {
	Create(ctx context.Context, d ShardDescriptor, c coder.Coder, opts Options, counters CounterSet, operationName string) (Reader, error)
}

// FactoryFunc adapts a function to the ReaderFactory interface.
type FactoryFunc func(ctx context.Context, d ShardDescriptor, c coder.Coder, opts Options, counters CounterSet, operationName string) (Reader, error)

func (f FactoryFunc) Create(ctx context.Context, d ShardDescriptor, c coder.Coder, opts Options, counters CounterSet, operationName string) (Reader, error) {
	return f(ctx, d, c, opts, counters, operationName)
}

// Registry maps format identifiers to reader factories.
type Registry struct {
	mtx       sync.RWMutex
	factories map[string]ReaderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ReaderFactory)}
}

func (r *Registry) Register(format string, f ReaderFactory) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.factories[format]; ok {
		return errors.Wrap(ErrFormatAlreadyRegistered, format)
	}
	r.factories[format] = f
	return nil
}

func (r *Registry) Formats() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	out := make([]string, 0, len(r.factories))
	for format := range r.factories {
		out = append(out, format)
	}
	sort.Strings(out)
	return out
}

// Create parses spec and builds a reader for it.
func (r *Registry) Create(ctx context.Context, spec Spec, c coder.Coder, opts Options, counters CounterSet, operationName string) (Reader, error) {
	d, err := ParseDescriptor(spec)
	if err != nil {
		return nil, err
	}
	return r.CreateFromDescriptor(ctx, d, c, opts, counters, operationName)
}

func (r *Registry) CreateFromDescriptor(ctx context.Context, d ShardDescriptor, c coder.Coder, opts Options, counters CounterSet, operationName string) (Reader, error) {
	r.mtx.RLock()
	f, ok := r.factories[d.Format()]
	r.mtx.RUnlock()
	if !ok {
		return nil, &UnsupportedFormatError{Format: d.Format()}
	}
	if operationName == "" {
		operationName = newOperationName()
	}
	ctx = AddFields(ctx, zap.String("operation_name", operationName), zap.String("shard_format", d.Format()))
	reader, err := f.Create(ctx, d, c, opts, counters, operationName)
	if err != nil {
		L(ctx).Error("failed to create reader", zap.String("shard_locator", d.Locator()), zap.Error(err))
		return nil, err
	}
	L(ctx).Debug("reader created", zap.String("shard_locator", d.Locator()))
	return reader, nil
}

var (
	entropyMtx sync.Mutex
	entropy    = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

func newOperationName() string {
	entropyMtx.Lock()
	defer entropyMtx.Unlock()
	return "read-" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
