package commitlog

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Cursor reads log records in offset order.
type Cursor interface {
	io.Seeker
	io.Closer
	// Decode returns the record at the current offset and moves past it. It
	// returns io.EOF once the end of the log is reached.
	Decode() (Entry, error)
}

type cursor struct {
	mtx            sync.Mutex
	currentIdx     int
	offset         uint64
	headerBuf      []byte
	currentSegment Segment
	log            *commitLog
}

func (c *cursor) Close() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.closeSegment()
}

func (c *cursor) closeSegment() error {
	if c.currentSegment != nil {
		err := c.currentSegment.Close()
		c.currentSegment = nil
		return err
	}
	return nil
}

// Seek moves the cursor to the given record offset. Only io.SeekStart is supported.
func (c *cursor) Seek(offset int64, whence int) (int64, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		return 0, errors.New("SeekCurrent unsupported when reading the log")
	default:
		return 0, errors.New("invalid whence")
	}
	if offset < 0 {
		return 0, ErrInvalidOffset
	}
	idx := c.log.lookupOffset(uint64(offset))
	if idx != c.currentIdx {
		if err := c.closeSegment(); err != nil {
			return 0, err
		}
		c.currentIdx = idx
	}
	c.offset = uint64(offset)
	return offset, nil
}

func (c *cursor) Decode() (Entry, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.currentIdx < 0 {
		c.currentIdx = 0
	}
	for {
		if c.currentSegment == nil {
			segment, err := c.log.readSegment(c.currentIdx)
			if err != nil {
				return nil, err
			}
			c.currentSegment = segment
		}
		e, err := c.currentSegment.ReadEntryAt(c.headerBuf, c.offset)
		if err == io.EOF {
			if c.currentIdx+1 < c.log.segmentCount() {
				if err := c.closeSegment(); err != nil {
					return nil, err
				}
				c.currentIdx++
				continue
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read record %d", c.offset)
		}
		c.offset++
		return e, nil
	}
}
