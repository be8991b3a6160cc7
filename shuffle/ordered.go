package shuffle

import "errors"

const (
	orderedEscape     byte = 0x00
	orderedEscaped00  byte = 0xff
	orderedTerminator byte = 0x01
)

var ErrInvalidOrderedBytes = errors.New("invalid ordered bytes encoding")

// AppendOrderedBytes appends an encoding of b to dst such that the bytewise
// order of encodings matches the bytewise order of inputs, including when
// encodings are followed by more data.
func AppendOrderedBytes(dst, b []byte) []byte {
	for _, c := range b {
		if c == orderedEscape {
			dst = append(dst, orderedEscape, orderedEscaped00)
		} else {
			dst = append(dst, c)
		}
	}
	return append(dst, orderedEscape, orderedTerminator)
}

// ReadOrderedBytes decodes one value written by AppendOrderedBytes and returns
// it along with the remaining input.
func ReadOrderedBytes(b []byte) ([]byte, []byte, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != orderedEscape {
			out = append(out, b[i])
			continue
		}
		if i+1 >= len(b) {
			return nil, nil, ErrInvalidOrderedBytes
		}
		switch b[i+1] {
		case orderedTerminator:
			return out, b[i+2:], nil
		case orderedEscaped00:
			out = append(out, orderedEscape)
			i++
		default:
			return nil, nil, ErrInvalidOrderedBytes
		}
	}
	return nil, nil, ErrInvalidOrderedBytes
}
