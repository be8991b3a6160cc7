package worker

const (
	CounterRecordsRead    = "records-read"
	CounterBytesRead      = "bytes-read"
	CounterDecodeErrors   = "decode-errors"
	CounterGroupsRead     = "groups-read"
	CounterValuesRead     = "values-read"
	CounterSplitsAccepted = "splits-accepted"
	CounterSplitsRejected = "splits-rejected"
)

// Counter is a monotonic progress counter.
type Counter interface {
	Add(delta float64)
}

// CounterSet hands out named counters for one operation.
type CounterSet interface {
	Counter(name string) Counter
}

type nopCounter struct{}

func (nopCounter) Add(float64) {}

// CounterFor returns the named counter of set, or a no-op counter when set is nil.
func CounterFor(set CounterSet, name string) Counter {
	if set == nil {
		return nopCounter{}
	}
	if c := set.Counter(name); c != nil {
		return c
	}
	return nopCounter{}
}

// ReaderCounters groups the counters shared by record readers.
type ReaderCounters struct {
	RecordsRead    Counter
	BytesRead      Counter
	DecodeErrors   Counter
	SplitsAccepted Counter
	SplitsRejected Counter
}

func NewReaderCounters(set CounterSet) ReaderCounters {
	return ReaderCounters{
		RecordsRead:    CounterFor(set, CounterRecordsRead),
		BytesRead:      CounterFor(set, CounterBytesRead),
		DecodeErrors:   CounterFor(set, CounterDecodeErrors),
		SplitsAccepted: CounterFor(set, CounterSplitsAccepted),
		SplitsRejected: CounterFor(set, CounterSplitsRejected),
	}
}
