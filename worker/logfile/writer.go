package logfile

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/vx-labs/shuffle/commitlog"
)

const DefaultSegmentRecordCount uint64 = 50000

var ErrUnsortedRecord = errors.New("record is not in (key, secondary key) order")

// RunWriter appends records to a sorted run stored in a commitlog. Callers
// append records in (key, secondary key) order.
type RunWriter struct {
	log          commitlog.CommitLog
	key          []byte
	secondaryKey []byte
	keyed        bool
}

func NewRunWriter(datadir string, segmentRecordCount uint64) (*RunWriter, error) {
	if segmentRecordCount == 0 {
		segmentRecordCount = DefaultSegmentRecordCount
	}
	log, err := commitlog.Open(datadir, segmentRecordCount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open run")
	}
	return &RunWriter{log: log}, nil
}

// Append writes a keyed record and returns its offset.
func (w *RunWriter) Append(key, secondaryKey, value []byte) (uint64, error) {
	if w.keyed {
		c := bytes.Compare(key, w.key)
		if c < 0 || (c == 0 && bytes.Compare(secondaryKey, w.secondaryKey) < 0) {
			return 0, ErrUnsortedRecord
		}
	}
	offset, err := w.log.WriteEntry(EncodeFrame(key, secondaryKey, value))
	if err != nil {
		return 0, err
	}
	w.key = append(w.key[:0], key...)
	w.secondaryKey = append(w.secondaryKey[:0], secondaryKey...)
	w.keyed = true
	return offset, nil
}

// AppendValue writes a bare value record, as read by the windowed variant.
func (w *RunWriter) AppendValue(value []byte) (uint64, error) {
	return w.log.WriteEntry(value)
}

func (w *RunWriter) Offset() uint64 {
	return w.log.Offset()
}

func (w *RunWriter) Close() error {
	return w.log.Close()
}
