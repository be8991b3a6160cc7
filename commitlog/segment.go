package commitlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"
)

var (
	ErrSegmentAlreadyExists = errors.New("segment already exists")
	ErrSegmentDoesNotExist  = errors.New("segment does not exist")
	ErrSegmentFull          = errors.New("segment is full")
	ErrSegmentCorrupt       = errors.New("segment corrupted")
	ErrSegmentReadOnly      = errors.New("segment is read-only")
	ErrCorruptedEntry       = errors.New("entry corrupted")
)

// Segment is one file of the log, holding at most maxRecordCount records
// starting at BaseOffset.
type Segment interface {
	FilePath() string
	BaseOffset() uint64
	CurrentOffset() uint64
	Size() uint64
	WriteEntry(value []byte) (uint64, error)
	ReadEntryAt(buf []byte, logOffset uint64) (Entry, error)
	Delete() error
	io.Closer
}

type segment struct {
	mtx             sync.Mutex
	baseOffset      uint64
	currentOffset   uint64
	currentPosition uint64
	fd              *os.File
	index           Index
	maxRecordCount  uint64
	path            string
	writable        bool
}

func segmentName(datadir string, id uint64) string {
	return path.Join(datadir, fmt.Sprintf("%d.log", id))
}

func (s *segment) Close() error {
	err := s.index.Close()
	if err != nil {
		s.fd.Close()
		return err
	}
	return s.fd.Close()
}
func (s *segment) Delete() error {
	s.Close()
	err := os.Remove(s.index.FilePath())
	if err != nil {
		return err
	}
	return os.Remove(s.FilePath())
}

func (s *segment) FilePath() string {
	return s.path
}
func (s *segment) BaseOffset() uint64 {
	return s.baseOffset
}
func (s *segment) CurrentOffset() uint64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.currentOffset
}
func (s *segment) Size() uint64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.currentPosition
}

func createSegment(datadir string, id uint64, maxRecordCount uint64) (Segment, error) {
	filename := segmentName(datadir, id)
	if fileExists(filename) {
		return nil, ErrSegmentAlreadyExists
	}
	idx, err := createIndex(datadir, id, maxRecordCount)
	if err != nil {
		return nil, err
	}
	fd, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0650)
	if err != nil {
		idx.Close()
		return nil, err
	}
	return &segment{
		path:           filename,
		baseOffset:     id,
		maxRecordCount: maxRecordCount,
		index:          idx,
		fd:             fd,
		writable:       true,
	}, nil
}

func openSegment(datadir string, id uint64, maxRecordCount uint64, write bool) (Segment, error) {
	filename := segmentName(datadir, id)
	if !fileExists(filename) {
		return nil, ErrSegmentDoesNotExist
	}
	idx, err := openIndex(datadir, id, maxRecordCount, write)
	if err != nil {
		return nil, err
	}
	perm := os.O_RDONLY
	if write {
		perm = os.O_RDWR
	}
	fd, err := os.OpenFile(filename, perm, 0650)
	if err != nil {
		idx.Close()
		return nil, err
	}
	offset, position, err := checkSegmentIntegrity(fd, maxRecordCount)
	if err != nil {
		idx.Close()
		fd.Close()
		return nil, err
	}
	return &segment{
		path:            filename,
		baseOffset:      id,
		currentOffset:   offset,
		currentPosition: position,
		maxRecordCount:  maxRecordCount,
		index:           idx,
		fd:              fd,
		writable:        write,
	}, nil
}

// checkSegmentIntegrity walks entry headers and returns the record count and
// the position following the last complete record.
func checkSegmentIntegrity(r io.ReadSeeker, size uint64) (uint64, uint64, error) {
	_, err := r.Seek(0, io.SeekStart)
	if err != nil {
		return 0, 0, ErrSegmentCorrupt
	}
	buf := make([]byte, EntryHeaderSize)
	var offset, position uint64
	for offset = 0; offset < size; offset++ {
		n, err := io.ReadFull(r, buf)
		if err == io.EOF {
			return offset, position, nil
		}
		if n != EntryHeaderSize {
			return offset, position, ErrSegmentCorrupt
		}
		payloadSize := encoding.Uint64(buf[0:8])
		_, err = r.Seek(int64(payloadSize), io.SeekCurrent)
		if err != nil {
			return offset, position, ErrSegmentCorrupt
		}
		position += uint64(EntryHeaderSize) + payloadSize
	}
	return offset, position, nil
}

func (s *segment) ReadEntryAt(buf []byte, logOffset uint64) (Entry, error) {
	s.mtx.Lock()
	current := s.currentOffset
	s.mtx.Unlock()
	if logOffset < s.baseOffset {
		return nil, ErrInvalidOffset
	}
	offset := logOffset - s.baseOffset
	if offset >= current {
		return nil, io.EOF
	}
	position, err := s.index.readPosition(offset)
	if err != nil {
		return nil, err
	}
	e, err := readEntry(&readerAt{pos: position, r: s.fd}, buf)
	if err != nil {
		return nil, err
	}
	if !e.IsValid() {
		return nil, ErrCorruptedEntry
	}
	return e, nil
}

// WriteEntry appends value and returns its offset relative to the segment.
func (s *segment) WriteEntry(value []byte) (uint64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if !s.writable {
		return 0, ErrSegmentReadOnly
	}
	if s.currentOffset >= s.maxRecordCount {
		return 0, ErrSegmentFull
	}
	e := newEntry(s.baseOffset+s.currentOffset, value)
	n, err := writeEntry(e, &writerAt{pos: s.currentPosition, w: s.fd})
	if err != nil {
		return 0, err
	}
	err = s.index.writePosition(s.currentOffset, s.currentPosition)
	if err != nil {
		// Index update failed: return an error and do not update write cursor
		return 0, err
	}
	written := s.currentOffset
	s.currentOffset++
	s.currentPosition += uint64(n)
	return written, nil
}
