package commitlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/tysonmote/gommap"
)

const (
	indexValueSize = 8
)

var encoding = binary.BigEndian

var (
	ErrIndexAlreadyExists = errors.New("index already exists")
	ErrIndexDoesNotExist  = errors.New("index does not exist")
	ErrInvalidOffset      = errors.New("invalid offset: offset is out of index bounds")
	ErrMMapFailed         = errors.New("mmap failed")
	ErrFSyncFailed        = errors.New("file sync failed")
	ErrIndexCorrupt       = errors.New("index corrupt")
)

// Index maps record offsets, relative to a segment, to file positions.
type Index interface {
	Sync() error
	FilePath() string
	io.Closer
	writePosition(offset, position uint64) error
	readPosition(offset uint64) (uint64, error)
}

type index struct {
	path     string
	fd       *os.File
	data     gommap.MMap
	writable bool
}

func indexName(datadir string, id uint64) string {
	return path.Join(datadir, fmt.Sprintf("%d.index", id))
}

func createIndex(datadir string, id uint64, segmentSize uint64) (Index, error) {
	filename := indexName(datadir, id)
	if fileExists(filename) {
		return nil, ErrIndexAlreadyExists
	}
	fd, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0650)
	if err != nil {
		return nil, err
	}
	err = fd.Truncate(int64(segmentSize * indexValueSize))
	if err != nil {
		fd.Close()
		os.Remove(filename)
		return nil, err
	}
	idx := &index{fd: fd, path: filename, writable: true}
	return idx, idx.mmap()
}

func openIndex(datadir string, id uint64, segmentSize uint64, write bool) (Index, error) {
	filename := indexName(datadir, id)
	if !fileExists(filename) {
		return nil, ErrIndexDoesNotExist
	}
	perm := os.O_RDONLY
	if write {
		perm = os.O_RDWR
	}
	fd, err := os.OpenFile(filename, perm, 0650)
	if err != nil {
		return nil, err
	}
	err = verifyIndex(fd, segmentSize)
	if err != nil {
		fd.Close()
		return nil, err
	}
	idx := &index{fd: fd, path: filename, writable: write}
	return idx, idx.mmap()
}

// indexRecordCount infers the segment capacity from the size of an index file.
func indexRecordCount(datadir string, id uint64) (uint64, error) {
	info, err := os.Stat(indexName(datadir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrIndexDoesNotExist
		}
		return 0, err
	}
	if info.Size() == 0 || info.Size()%indexValueSize != 0 {
		return 0, ErrIndexCorrupt
	}
	return uint64(info.Size()) / indexValueSize, nil
}

func (i *index) FilePath() string {
	return i.path
}

func verifyIndex(fd *os.File, size uint64) error {
	info, err := fd.Stat()
	if err != nil {
		return ErrIndexCorrupt
	}
	if uint64(info.Size()) != size*indexValueSize {
		return ErrIndexCorrupt
	}
	return nil
}

func (i *index) mmap() error {
	prot := gommap.PROT_READ
	if i.writable {
		prot |= gommap.PROT_WRITE
	}
	mmapedData, err := gommap.Map(i.fd.Fd(), prot, gommap.MAP_SHARED)
	if err != nil {
		i.fd.Close()
		return ErrMMapFailed
	}
	i.data = mmapedData
	return nil
}

func (i *index) Sync() error {
	if !i.writable {
		return nil
	}
	if err := i.data.Sync(gommap.MS_SYNC); err != nil {
		return ErrMMapFailed
	}
	if err := i.fd.Sync(); err != nil {
		return ErrFSyncFailed
	}
	return nil
}

func (i *index) Close() error {
	err := i.Sync()
	if err != nil {
		return err
	}
	err = i.data.UnsafeUnmap()
	if err != nil {
		return err
	}
	return i.fd.Close()
}

func (i *index) writePosition(offset, position uint64) error {
	writeOffset := offset * indexValueSize
	if writeOffset+indexValueSize > uint64(len(i.data)) {
		return ErrInvalidOffset
	}
	encoding.PutUint64(i.data[writeOffset:writeOffset+indexValueSize], position)
	return nil
}

func (i *index) readPosition(offset uint64) (uint64, error) {
	readOffset := offset * indexValueSize
	if readOffset+indexValueSize > uint64(len(i.data)) {
		return 0, ErrInvalidOffset
	}
	return encoding.Uint64(i.data[readOffset : readOffset+indexValueSize]), nil
}
