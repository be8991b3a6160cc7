package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vx-labs/shuffle/coder"
	"github.com/vx-labs/shuffle/shuffle"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type staticReader struct {
	tracker *RangeTracker
}

func (s *staticReader) Start(ctx context.Context) (*shuffle.Entry, error) {
	return nil, s.tracker.MarkStarted()
}
func (s *staticReader) Advance(ctx context.Context) (*shuffle.Entry, error) { return nil, nil }
func (s *staticReader) Progress() shuffle.Position                          { return s.tracker.Progress() }
func (s *staticReader) RequestDynamicSplit(p shuffle.Position) bool         { return s.tracker.TrySplitAt(p) }
func (s *staticReader) Close() error                                        { return nil }

type recordingFactory struct {
	calls         int
	operationName string
	descriptor    ShardDescriptor
}

func (f *recordingFactory) Create(ctx context.Context, d ShardDescriptor, c coder.Coder, opts Options, counters CounterSet, operationName string) (Reader, error) {
	f.calls++
	f.operationName = operationName
	f.descriptor = d
	CounterFor(counters, CounterRecordsRead).Add(0)
	return &staticReader{tracker: NewRangeTracker(d.StartPosition(), d.EndPosition())}, nil
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	factory := &recordingFactory{}
	require.NoError(t, registry.Register("shuffle", factory))
	require.NoError(t, registry.Register("other", FactoryFunc(func(ctx context.Context, d ShardDescriptor, c coder.Coder, opts Options, counters CounterSet, operationName string) (Reader, error) {
		return nil, errors.New("backend failure")
	})))

	t.Run("should refuse registering a format twice", func(t *testing.T) {
		err := registry.Register("shuffle", factory)
		require.True(t, errors.Is(err, ErrFormatAlreadyRegistered))
		require.Equal(t, []string{"other", "shuffle"}, registry.Formats())
	})
	t.Run("should reject a descriptor without locator before invoking any backend", func(t *testing.T) {
		_, err := registry.Create(ctx, Spec{"@type": "shuffle"}, coder.BytesCoder{}, DefaultOptions(), nil, "op")
		var invalid *InvalidDescriptorError
		require.True(t, errors.As(err, &invalid))
		require.Equal(t, 0, factory.calls)
	})
	t.Run("should reject unknown formats", func(t *testing.T) {
		_, err := registry.Create(ctx, Spec{"@type": "avro", "filename": "f"}, coder.BytesCoder{}, DefaultOptions(), nil, "op")
		var unsupported *UnsupportedFormatError
		require.True(t, errors.As(err, &unsupported))
		require.Equal(t, "avro", unsupported.Format)
		require.Equal(t, 0, factory.calls)
	})
	t.Run("should dispatch to the registered backend without a counter set", func(t *testing.T) {
		r, err := registry.Create(ctx, Spec{"@type": "shuffle", "filename": "f"}, coder.BytesCoder{}, DefaultOptions(), nil, "op")
		require.NoError(t, err)
		require.NotNil(t, r)
		require.Equal(t, 1, factory.calls)
		require.Equal(t, "op", factory.operationName)
		require.Equal(t, "f", factory.descriptor.Locator())
	})
	t.Run("should generate an operation name when none is given", func(t *testing.T) {
		_, err := registry.Create(ctx, Spec{"@type": "shuffle", "filename": "f"}, coder.BytesCoder{}, DefaultOptions(), nil, "")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(factory.operationName, "read-"))
	})
	t.Run("should log and return backend failures", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		ctx := StoreLogger(ctx, zap.New(core))
		_, err := registry.Create(ctx, Spec{"@type": "other", "filename": "f"}, coder.BytesCoder{}, DefaultOptions(), nil, "op")
		require.EqualError(t, err, "backend failure")
		require.Equal(t, 1, logs.FilterMessage("failed to create reader").Len())
	})
}

func TestLogger(t *testing.T) {
	require.NotNil(t, L(context.Background()))
	core, logs := observer.New(zap.InfoLevel)
	ctx := StoreLogger(context.Background(), zap.New(core))
	ctx = AddFields(ctx, zap.String("shard_locator", "f"))
	L(ctx).Info("hello")
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "f", logs.All()[0].ContextMap()["shard_locator"])
}
