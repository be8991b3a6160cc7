package coder

import (
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/wrappers"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, c Coder, v interface{}) interface{} {
	b, err := c.Encode(v)
	require.NoError(t, err)
	out, err := c.Decode(b)
	require.NoError(t, err)
	return out
}

func TestSimpleCoders(t *testing.T) {
	t.Run("bytes", func(t *testing.T) {
		require.Equal(t, []byte("abc"), roundTrip(t, BytesCoder{}, []byte("abc")))
		_, err := BytesCoder{}.Encode("abc")
		require.True(t, errors.Is(err, ErrUnexpectedType))
	})
	t.Run("string", func(t *testing.T) {
		require.Equal(t, "héllo", roundTrip(t, StringUTF8Coder{}, "héllo"))
		_, err := StringUTF8Coder{}.Decode([]byte{0xff, 0xfe})
		require.Equal(t, ErrInvalidUTF8, err)
	})
	t.Run("varint", func(t *testing.T) {
		require.Equal(t, int64(-42), roundTrip(t, VarIntCoder{}, int64(-42)))
		require.Equal(t, int64(7), roundTrip(t, VarIntCoder{}, 7))
		_, err := VarIntCoder{}.Decode(nil)
		require.Equal(t, ErrTruncated, err)
		_, err = VarIntCoder{}.Decode([]byte{0x02, 0x02})
		require.Equal(t, ErrTrailingBytes, err)
	})
	t.Run("proto", func(t *testing.T) {
		c := ProtoCoder{New: func() proto.Message { return &wrappers.StringValue{} }}
		out := roundTrip(t, c, &wrappers.StringValue{Value: "test"})
		require.True(t, proto.Equal(&wrappers.StringValue{Value: "test"}, out.(proto.Message)))
		_, err := c.Decode([]byte{0xff})
		require.Error(t, err)
	})
	t.Run("kv", func(t *testing.T) {
		c := KVCoder{Key: StringUTF8Coder{}, Value: VarIntCoder{}}
		require.Equal(t, KV{Key: "a", Value: int64(3)}, roundTrip(t, c, KV{Key: "a", Value: int64(3)}))
		_, err := c.Decode([]byte{0x05, 'a'})
		require.Equal(t, ErrTruncated, err)
	})
}

func TestWindowedCoders(t *testing.T) {
	t.Run("should encode windows and timestamp", func(t *testing.T) {
		c := FullWindowedValueCoder{Value: StringUTF8Coder{}}
		wv := WindowedValue{Value: "v", Timestamp: 12, Windows: []Window{{Start: 0, End: 100}, GlobalWindow}}
		require.Equal(t, wv, roundTrip(t, c, wv))
		require.Equal(t, StringUTF8Coder{}, c.ValueCoder())
	})
	t.Run("should place value only encodings in the global window", func(t *testing.T) {
		c := ValueOnlyWindowedValueCoder{Value: VarIntCoder{}}
		b, err := c.Encode(WindowedValue{Value: int64(9), Timestamp: 55})
		require.NoError(t, err)
		require.Equal(t, []byte{0x12}, b)
		out, err := c.Decode(b)
		require.NoError(t, err)
		require.Equal(t, ValueInGlobalWindow(int64(9)), out)
	})
	t.Run("should reject truncated windows", func(t *testing.T) {
		_, err := FullWindowedValueCoder{Value: BytesCoder{}}.Decode([]byte{0x00, 0x02, 0x00})
		require.Equal(t, ErrTruncated, err)
	})
}

func TestLookup(t *testing.T) {
	c, err := Lookup("value_only:string_utf8")
	require.NoError(t, err)
	require.Equal(t, ValueOnlyWindowedValueCoder{Value: StringUTF8Coder{}}, c)
	c, err = Lookup("windowed:varint")
	require.NoError(t, err)
	_, ok := c.(WindowedCoder)
	require.True(t, ok)
	_, err = Lookup("avro")
	require.True(t, errors.Is(err, ErrUnknownCoder))
	_, err = Lookup("boxed:bytes")
	require.True(t, errors.Is(err, ErrUnknownCoder))
}
