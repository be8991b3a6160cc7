package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vx-labs/shuffle/coder"
)

func TestReadRecords(t *testing.T) {
	t.Run("should parse keyed records", func(t *testing.T) {
		out := []record{}
		count, err := readRecords(strings.NewReader("a\t1\n\nb\tx\t2\n"), coder.VarIntCoder{}, func(r record) error {
			out = append(out, r)
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 2, count)
		require.Equal(t, []byte("a"), out[0].Key)
		require.Empty(t, out[0].SecondaryKey)
		v, err := coder.VarIntCoder{}.Decode(out[1].Value)
		require.NoError(t, err)
		require.Equal(t, int64(2), v)
		require.Equal(t, []byte("x"), out[1].SecondaryKey)
	})
	t.Run("should reject malformed lines", func(t *testing.T) {
		_, err := readRecords(strings.NewReader("a\n"), coder.BytesCoder{}, func(r record) error { return nil })
		require.Error(t, err)
		_, err = readRecords(strings.NewReader("a\tnot-a-number\n"), coder.VarIntCoder{}, func(r record) error { return nil })
		require.Error(t, err)
	})
	t.Run("should wrap values for windowed coders", func(t *testing.T) {
		c := coder.FullWindowedValueCoder{Value: coder.StringUTF8Coder{}}
		v, err := textValue(c, "hello")
		require.NoError(t, err)
		require.Equal(t, coder.ValueInGlobalWindow("hello"), v)
	})
}

func TestParseTemplate(t *testing.T) {
	tpl, err := ParseTemplate(`{{ .Key }} {{ .Size | humanBytes }} {{ .Count | humanCount }}`)
	require.NoError(t, err)
	buf := bytes.NewBuffer(nil)
	require.NoError(t, tpl.Execute(buf, groupOutput{Key: "a", Size: 2048, Count: 1200}))
	require.Equal(t, "a 2.0 kB 1,200\n", buf.String())
	_, err = ParseTemplate(groupTemplate)
	require.NoError(t, err)
	_, err = ParseTemplate("{{ .Key ")
	require.Error(t, err)
}
