package commitlog

import (
	"io/ioutil"
	"strings"
)

type Statistics struct {
	SegmentCount  uint64
	CurrentOffset uint64
	StoredBytes   uint64
}

func (c *commitLog) GetStatistics() Statistics {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	var size int64
	files, err := ioutil.ReadDir(c.datadir)
	if err == nil {
		for _, file := range files {
			if strings.HasSuffix(file.Name(), ".log") {
				size += file.Size()
			}
		}
	}
	var current uint64
	if c.activeSegment != nil {
		current = c.activeSegment.CurrentOffset() + c.activeSegment.BaseOffset()
	}
	return Statistics{
		CurrentOffset: current,
		SegmentCount:  uint64(len(c.segments)),
		StoredBytes:   uint64(size),
	}
}
