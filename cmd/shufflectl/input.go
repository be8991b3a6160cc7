package main

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/vx-labs/shuffle/coder"
)

type record struct {
	Key          []byte
	SecondaryKey []byte
	Value        []byte
}

// textValue converts a command line value to what c expects.
func textValue(c coder.Coder, s string) (interface{}, error) {
	switch c := c.(type) {
	case coder.BytesCoder:
		return []byte(s), nil
	case coder.VarIntCoder:
		return strconv.ParseInt(s, 10, 64)
	case coder.WindowedCoder:
		v, err := textValue(c.ValueCoder(), s)
		if err != nil {
			return nil, err
		}
		return coder.ValueInGlobalWindow(v), nil
	default:
		return s, nil
	}
}

// readRecords parses tab separated lines: "key<TAB>value" or
// "key<TAB>secondary key<TAB>value".
func readRecords(r io.Reader, valueCoder coder.Coder, fn func(record) error) (int, error) {
	scanner := bufio.NewScanner(r)
	count := 0
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		rec := record{}
		var text string
		switch len(fields) {
		case 2:
			rec.Key, text = []byte(fields[0]), fields[1]
		case 3:
			rec.Key, rec.SecondaryKey, text = []byte(fields[0]), []byte(fields[1]), fields[2]
		default:
			return count, errors.Errorf("line %d: expected 2 or 3 tab separated fields, got %d", count+1, len(fields))
		}
		v, err := textValue(valueCoder, text)
		if err != nil {
			return count, errors.Wrapf(err, "line %d", count+1)
		}
		rec.Value, err = valueCoder.Encode(v)
		if err != nil {
			return count, errors.Wrapf(err, "line %d", count+1)
		}
		if err := fn(rec); err != nil {
			return count, err
		}
		count++
	}
	return count, scanner.Err()
}
