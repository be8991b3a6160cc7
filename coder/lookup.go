package coder

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrUnknownCoder = errors.New("unknown coder")

var simpleCoders = map[string]Coder{
	"bytes":       BytesCoder{},
	"string_utf8": StringUTF8Coder{},
	"varint":      VarIntCoder{},
}

// Lookup builds a coder from a short name such as "string_utf8",
// "windowed:varint" or "value_only:bytes". It is meant for tooling; pipelines
// resolve their coders before handing them to readers.
func Lookup(name string) (Coder, error) {
	if c, ok := simpleCoders[name]; ok {
		return c, nil
	}
	idx := strings.IndexByte(name, ':')
	if idx < 0 {
		return nil, errors.Wrap(ErrUnknownCoder, name)
	}
	inner, err := Lookup(name[idx+1:])
	if err != nil {
		return nil, err
	}
	switch name[:idx] {
	case "windowed":
		return FullWindowedValueCoder{Value: inner}, nil
	case "value_only":
		return ValueOnlyWindowedValueCoder{Value: inner}, nil
	default:
		return nil, errors.Wrap(ErrUnknownCoder, name)
	}
}
