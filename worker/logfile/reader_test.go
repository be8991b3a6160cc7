package logfile

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vx-labs/shuffle/coder"
	"github.com/vx-labs/shuffle/shuffle"
	"github.com/vx-labs/shuffle/worker"
)

func tempDir(t testing.TB) string {
	dir, err := ioutil.TempDir("", "logfile_test")
	require.NoError(t, err)
	return dir
}

func writeRun(t testing.TB, datadir string, count int) {
	w, err := NewRunWriter(datadir, 4)
	require.NoError(t, err)
	for i := 0; i < count; i++ {
		value, err := coder.StringUTF8Coder{}.Encode(fmt.Sprintf("value-%d", i))
		require.NoError(t, err)
		key, secondaryKey := recordKeys(i)
		n, err := w.Append(key, secondaryKey, value)
		require.NoError(t, err)
		require.Equal(t, uint64(i), n)
	}
	require.Equal(t, uint64(count), w.Offset())
	require.NoError(t, w.Close())
}

func recordKeys(i int) ([]byte, []byte) {
	return []byte(fmt.Sprintf("k%02d", i/2)), []byte{byte(i % 2)}
}

func recordPos(i int) shuffle.Position {
	key, secondaryKey := recordKeys(i)
	return RecordPosition(key, secondaryKey, uint64(i))
}

func readAll(t testing.TB, r worker.Reader) []*shuffle.Entry {
	ctx := context.Background()
	out := []*shuffle.Entry{}
	e, err := r.Start(ctx)
	for ; e != nil && err == nil; e, err = r.Advance(ctx) {
		out = append(out, e)
	}
	require.NoError(t, err)
	return out
}

func newRegistry(t testing.TB) *worker.Registry {
	registry := worker.NewRegistry()
	require.NoError(t, Register(registry))
	return registry
}

type mapCounters map[string]float64

type mapCounter struct {
	set  mapCounters
	name string
}

func (c mapCounter) Add(d float64)                       { c.set[c.name] += d }
func (m mapCounters) Counter(name string) worker.Counter { return mapCounter{set: m, name: name} }

func TestFrame(t *testing.T) {
	frame := EncodeFrame([]byte("key"), nil, []byte("value"))
	key, sk, value, err := DecodeFrame(frame)
	require.NoError(t, err)
	require.Equal(t, []byte("key"), key)
	require.Empty(t, sk)
	require.Equal(t, []byte("value"), value)
	_, _, _, err = DecodeFrame([]byte{0x05, 'a'})
	require.Equal(t, ErrInvalidFrame, err)

	key, sk, offset, err := ParsePosition(RecordPosition([]byte("a\x00b"), []byte("s"), 42))
	require.NoError(t, err)
	require.Equal(t, []byte("a\x00b"), key)
	require.Equal(t, []byte("s"), sk)
	require.Equal(t, uint64(42), offset)
	_, err = PositionOffset(shuffle.FromBytes([]byte("abc")))
	require.Equal(t, ErrInvalidPosition, err)
	_, err = PositionOffset(shuffle.FromBytes(append(RecordPosition(nil, nil, 1).Bytes(), 0x00)))
	require.Equal(t, ErrInvalidPosition, err)

	require.True(t, RecordPosition(nil, nil, 255).Less(RecordPosition(nil, nil, 256)))
	require.True(t, RecordPosition([]byte("b"), nil, 0).Less(RecordPosition([]byte("c"), nil, 0)))
	require.True(t, RecordPosition([]byte("b"), nil, 9).Less(RecordPosition([]byte("c"), nil, 0)),
		"positions of different runs compare in key order")
	require.True(t, RecordPosition([]byte("b"), nil, 9).Less(RecordPosition([]byte("b"), []byte{0}, 0)))
	require.True(t, RecordPosition([]byte("b"), nil, 9).Less(RecordPosition([]byte("bb"), nil, 0)))
}

func TestRunWriter(t *testing.T) {
	datadir := tempDir(t)
	defer os.RemoveAll(datadir)
	w, err := NewRunWriter(datadir, 4)
	require.NoError(t, err)
	defer w.Close()
	_, err = w.Append([]byte("b"), []byte("2"), nil)
	require.NoError(t, err)
	_, err = w.Append([]byte("b"), []byte("2"), nil)
	require.NoError(t, err)
	_, err = w.Append([]byte("b"), []byte("1"), nil)
	require.Equal(t, ErrUnsortedRecord, err)
	_, err = w.Append([]byte("a"), []byte("3"), nil)
	require.Equal(t, ErrUnsortedRecord, err)
	_, err = w.Append([]byte("c"), nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(3), w.Offset())
}

func TestByteReader(t *testing.T) {
	datadir := tempDir(t)
	defer os.RemoveAll(datadir)
	writeRun(t, datadir, 10)
	registry := newRegistry(t)
	ctx := context.Background()

	t.Run("should read the whole run", func(t *testing.T) {
		counters := mapCounters{}
		r, err := registry.Create(ctx, worker.Spec{"@type": Format, "filename": datadir}, coder.StringUTF8Coder{}, worker.DefaultOptions(), counters, "op")
		require.NoError(t, err)
		defer r.Close()
		entries := readAll(t, r)
		require.Equal(t, 10, len(entries))
		for i, e := range entries {
			require.Equal(t, recordPos(i), e.Position)
			require.Equal(t, []byte(fmt.Sprintf("k%02d", i/2)), e.Key)
		}
		require.Equal(t, float64(10), counters[worker.CounterRecordsRead])
		require.Equal(t, recordPos(9), r.Progress())
	})
	t.Run("should honor offset bounds", func(t *testing.T) {
		r, err := registry.Create(ctx, worker.Spec{"@type": Format, "filename": datadir, "start_offset": 3, "end_offset": "7"}, coder.StringUTF8Coder{}, worker.DefaultOptions(), nil, "")
		require.NoError(t, err)
		defer r.Close()
		entries := readAll(t, r)
		require.Equal(t, 4, len(entries))
		require.Equal(t, recordPos(3), entries[0].Position)
		require.Equal(t, recordPos(6), entries[3].Position)
	})
	t.Run("should read nothing from an empty range", func(t *testing.T) {
		r, err := registry.Create(ctx, worker.Spec{"@type": Format, "filename": datadir, "start_offset": 4, "end_offset": 4}, coder.StringUTF8Coder{}, worker.DefaultOptions(), nil, "")
		require.NoError(t, err)
		defer r.Close()
		require.Empty(t, readAll(t, r))
	})
	t.Run("should honor position bounds", func(t *testing.T) {
		r, err := registry.Create(ctx, worker.Spec{
			"@type":                  Format,
			"filename":               datadir,
			"start_shuffle_position": recordPos(2).EncodeBase64(),
			"end_shuffle_position":   recordPos(8).EncodeBase64(),
		}, coder.StringUTF8Coder{}, worker.DefaultOptions(), nil, "")
		require.NoError(t, err)
		defer r.Close()
		entries := readAll(t, r)
		require.Equal(t, 6, len(entries))
		require.Equal(t, recordPos(2), entries[0].Position)
	})
	t.Run("should honor positions taken from another run", func(t *testing.T) {
		r, err := registry.Create(ctx, worker.Spec{
			"@type":                  Format,
			"filename":               datadir,
			"start_shuffle_position": RecordPosition([]byte("k03"), nil, 100).EncodeBase64(),
			"end_shuffle_position":   RecordPosition([]byte("k04"), []byte{1}, 0).EncodeBase64(),
		}, coder.StringUTF8Coder{}, worker.DefaultOptions(), nil, "")
		require.NoError(t, err)
		defer r.Close()
		entries := readAll(t, r)
		require.Equal(t, 3, len(entries))
		require.Equal(t, recordPos(6), entries[0].Position)
		require.Equal(t, recordPos(8), entries[2].Position)
	})
	t.Run("should keep the tighter of offset and position bounds", func(t *testing.T) {
		r, err := registry.Create(ctx, worker.Spec{
			"@type":                  Format,
			"filename":               datadir,
			"start_offset":           1,
			"start_shuffle_position": recordPos(4).EncodeBase64(),
			"end_offset":             9,
			"end_shuffle_position":   recordPos(7).EncodeBase64(),
		}, coder.StringUTF8Coder{}, worker.DefaultOptions(), nil, "")
		require.NoError(t, err)
		defer r.Close()
		entries := readAll(t, r)
		require.Equal(t, 3, len(entries))
		require.Equal(t, recordPos(4), entries[0].Position)
	})
	t.Run("should read nothing past the end of the run", func(t *testing.T) {
		r, err := registry.Create(ctx, worker.Spec{"@type": Format, "filename": datadir, "start_offset": 12}, coder.StringUTF8Coder{}, worker.DefaultOptions(), nil, "")
		require.NoError(t, err)
		defer r.Close()
		require.Empty(t, readAll(t, r))
	})
	t.Run("should fail on missing runs", func(t *testing.T) {
		_, err := registry.Create(ctx, worker.Spec{"@type": Format, "filename": datadir + "-missing"}, coder.StringUTF8Coder{}, worker.DefaultOptions(), nil, "")
		require.Error(t, err)
	})
}

func TestReaderSplit(t *testing.T) {
	datadir := tempDir(t)
	defer os.RemoveAll(datadir)
	writeRun(t, datadir, 10)
	ctx := context.Background()
	d, err := worker.ParseDescriptor(worker.Spec{"@type": Format, "filename": datadir, "end_offset": 8})
	require.NoError(t, err)
	r, err := Factory{}.Create(ctx, d, coder.StringUTF8Coder{}, worker.DefaultOptions(), nil, "op")
	require.NoError(t, err)
	defer r.Close()

	require.False(t, r.RequestDynamicSplit(recordPos(5)), "unstarted readers reject splits")
	_, err = r.Advance(ctx)
	require.Equal(t, worker.ErrNotStarted, err)

	e, err := r.Start(ctx)
	require.NoError(t, err)
	require.Equal(t, recordPos(0), e.Position)
	e, err = r.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, recordPos(1), e.Position)

	require.False(t, r.RequestDynamicSplit(recordPos(1)), "splits at progress are rejected")
	require.False(t, r.RequestDynamicSplit(recordPos(9)), "splits after the range are rejected")
	require.True(t, r.RequestDynamicSplit(recordPos(5)))
	require.True(t, r.RequestDynamicSplit(shuffle.FromBytes(append(recordPos(3).Bytes(), 0x01))))

	count := 2
	for e, err = r.Advance(ctx); e != nil; e, err = r.Advance(ctx) {
		count++
	}
	require.NoError(t, err)
	require.Equal(t, 4, count, "split snaps to the next record offset")
	require.False(t, r.RequestDynamicSplit(recordPos(2)), "finished readers reject splits")
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	_, err = r.Advance(ctx)
	require.Equal(t, worker.ErrReaderClosed, err)
}

func TestReaderDecodeError(t *testing.T) {
	datadir := tempDir(t)
	defer os.RemoveAll(datadir)
	w, err := NewRunWriter(datadir, 4)
	require.NoError(t, err)
	_, err = w.Append([]byte("a"), nil, []byte("ok"))
	require.NoError(t, err)
	_, err = w.Append([]byte("b"), nil, []byte{0xff, 0xfe})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	counters := mapCounters{}
	d, err := worker.ParseDescriptor(worker.Spec{"@type": Format, "filename": datadir})
	require.NoError(t, err)
	r, err := Factory{}.Create(context.Background(), d, coder.StringUTF8Coder{}, worker.DefaultOptions(), counters, "op")
	require.NoError(t, err)
	defer r.Close()
	e, err := r.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("a"), e.Key)
	_, err = r.Advance(context.Background())
	var decodeErr *worker.DecodeError
	require.True(t, errors.As(err, &decodeErr))
	require.Equal(t, RecordPosition([]byte("b"), nil, 1), decodeErr.Position)
	require.Equal(t, float64(1), counters[worker.CounterDecodeErrors])
}

func TestWindowedReader(t *testing.T) {
	datadir := tempDir(t)
	defer os.RemoveAll(datadir)
	w, err := NewRunWriter(datadir, 4)
	require.NoError(t, err)
	for i := int64(0); i < 3; i++ {
		value, err := coder.VarIntCoder{}.Encode(i)
		require.NoError(t, err)
		_, err = w.AppendValue(value)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	windowed := coder.FullWindowedValueCoder{Value: coder.VarIntCoder{}}
	d, err := worker.ParseDescriptor(worker.Spec{"@type": Format, "filename": datadir})
	require.NoError(t, err)
	r, err := Factory{}.Create(context.Background(), d, windowed, worker.DefaultOptions(), nil, "op")
	require.NoError(t, err)
	defer r.Close()
	entries := readAll(t, r)
	require.Equal(t, 3, len(entries))
	for i, e := range entries {
		v, err := windowed.Decode(e.Value)
		require.NoError(t, err)
		require.Equal(t, coder.ValueInGlobalWindow(int64(i)), v)
		require.Empty(t, e.Key, "bare records carry no key")
		require.Empty(t, e.SecondaryKey)
		require.Equal(t, RecordPosition(nil, nil, uint64(i)), e.Position)
	}
}

func BenchmarkReader(b *testing.B) {
	datadir := tempDir(b)
	defer os.RemoveAll(datadir)
	writeRun(b, datadir, 1000)
	d, err := worker.ParseDescriptor(worker.Spec{"@type": Format, "filename": datadir})
	require.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := Factory{}.Create(context.Background(), d, coder.BytesCoder{}, worker.DefaultOptions(), nil, "bench")
		require.NoError(b, err)
		readAll(b, r)
		r.Close()
	}
}
