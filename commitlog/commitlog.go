package commitlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrCorruptedLog     = errors.New("corrupted commitlog")
	ErrLogDoesNotExist  = errors.New("commitlog does not exist")
	ErrLogReadOnly      = errors.New("commitlog is read-only")
	ErrInvalidRecordCap = errors.New("segment max record count must be positive")
)

type commitLog struct {
	datadir               string
	mtx                   sync.Mutex
	activeSegment         Segment
	segments              []uint64
	segmentMaxRecordCount uint64
	writable              bool
}

// CommitLog is an append-only sequence of records split across segment files.
type CommitLog interface {
	io.Closer
	WriteEntry(value []byte) (uint64, error)
	Delete() error
	Reader() Cursor
	Offset() uint64
	Datadir() string
	GetStatistics() Statistics
}

func logFiles(datadir string) []uint64 {
	matches, err := filepath.Glob(fmt.Sprintf("%s/*.log", datadir))
	if err != nil {
		return nil
	}
	out := make([]uint64, 0)
	for idx := range matches {
		offsetStr := strings.TrimSuffix(filepath.Base(matches[idx]), ".log")
		offset, err := strconv.ParseUint(offsetStr, 10, 64)
		if err == nil {
			out = append(out, offset)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Open opens the log stored in datadir for writing, creating it if needed.
func Open(datadir string, segmentMaxRecordCount uint64) (CommitLog, error) {
	if segmentMaxRecordCount == 0 {
		return nil, ErrInvalidRecordCap
	}
	files := logFiles(datadir)
	if len(files) > 0 {
		return open(datadir, files, segmentMaxRecordCount, true)
	}
	err := os.MkdirAll(datadir, 0750)
	if err != nil {
		return nil, err
	}
	return create(datadir, segmentMaxRecordCount)
}

// OpenReadOnly opens an existing log. The segment capacity is read from the
// index files.
func OpenReadOnly(datadir string) (CommitLog, error) {
	files := logFiles(datadir)
	if len(files) == 0 {
		return nil, ErrLogDoesNotExist
	}
	segmentMaxRecordCount, err := indexRecordCount(datadir, files[0])
	if err != nil {
		return nil, errors.Wrap(err, "failed to read segment capacity")
	}
	return open(datadir, files, segmentMaxRecordCount, false)
}

func create(datadir string, segmentMaxRecordCount uint64) (CommitLog, error) {
	l := &commitLog{
		datadir:               datadir,
		segmentMaxRecordCount: segmentMaxRecordCount,
		writable:              true,
	}
	return l, l.appendSegment(0)
}

func open(datadir string, files []uint64, segmentMaxRecordCount uint64, write bool) (CommitLog, error) {
	l := &commitLog{
		datadir:               datadir,
		segmentMaxRecordCount: segmentMaxRecordCount,
		writable:              write,
	}
	for idx, offset := range files {
		if offset != uint64(idx)*segmentMaxRecordCount {
			return nil, ErrCorruptedLog
		}
	}
	last := files[len(files)-1]
	segment, err := openSegment(datadir, last, segmentMaxRecordCount, write)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptedLog, err.Error())
	}
	l.segments = files
	l.activeSegment = segment
	return l, nil
}

func (e *commitLog) Offset() uint64 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.activeSegment.CurrentOffset() + e.activeSegment.BaseOffset()
}
func (e *commitLog) Close() error {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.activeSegment != nil {
		err := e.activeSegment.Close()
		e.activeSegment = nil
		return err
	}
	return nil
}
func (e *commitLog) Datadir() string {
	return e.datadir
}
func (e *commitLog) Delete() error {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.activeSegment != nil {
		e.activeSegment.Close()
		e.activeSegment = nil
	}
	for _, idx := range e.segments {
		segment, err := openSegment(e.datadir, idx, e.segmentMaxRecordCount, false)
		if err == nil {
			err = segment.Delete()
			if err != nil {
				return err
			}
		}
	}
	return nil
}
func (e *commitLog) appendSegment(offset uint64) error {
	segment, err := createSegment(e.datadir, offset, e.segmentMaxRecordCount)
	if err != nil {
		return errors.Wrap(err, "failed to create new segment")
	}
	e.segments = append(e.segments, offset)
	if e.activeSegment != nil {
		err = e.activeSegment.Close()
		if err != nil {
			return err
		}
	}
	e.activeSegment = segment
	return nil
}

// lookupOffset returns the segment index of the segment containing the provided offset
func (e *commitLog) lookupOffset(offset uint64) int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	count := len(e.segments)
	idx := sort.Search(count, func(i int) bool {
		return e.segments[i] > offset
	})
	return idx - 1
}

func (e *commitLog) segmentCount() int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return len(e.segments)
}

func (e *commitLog) readSegment(idx int) (Segment, error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if idx < 0 || idx >= len(e.segments) {
		return nil, io.EOF
	}
	return openSegment(e.datadir, e.segments[idx], e.segmentMaxRecordCount, false)
}

func (e *commitLog) Reader() Cursor {
	return &cursor{
		log:        e,
		currentIdx: -1,
		headerBuf:  make([]byte, EntryHeaderSize),
	}
}

func (e *commitLog) WriteEntry(value []byte) (uint64, error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if !e.writable {
		return 0, ErrLogReadOnly
	}
	if segmentEntryCount := e.activeSegment.CurrentOffset(); segmentEntryCount >= e.segmentMaxRecordCount {
		err := e.appendSegment(uint64(len(e.segments)) * e.segmentMaxRecordCount)
		if err != nil {
			return 0, errors.Wrap(err, "failed to extend log")
		}
	}
	n, err := e.activeSegment.WriteEntry(value)
	return n + e.activeSegment.BaseOffset(), err
}
