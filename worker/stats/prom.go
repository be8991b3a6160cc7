package stats

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vx-labs/shuffle/worker"
)

func MilisecondsElapsed(from time.Time) float64 {
	return float64(time.Since(from)) / float64(time.Millisecond)
}

var (
	prometheusMetricsFactory promauto.Factory                    = promauto.With(prometheus.DefaultRegisterer)
	defaultCounters          *prometheus.CounterVec              = newCounterVec(prometheusMetricsFactory)
	histogramVecs            map[string]*prometheus.HistogramVec = map[string]*prometheus.HistogramVec{
		"groupProcessingTime": prometheusMetricsFactory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shuffle_group_processing_time_milliseconds",
			Help:    "The time elapsed processing one key group.",
			Buckets: []float64{0.1, 1, 5, 50, 500},
		}, []string{"operation_name", "result"}),
	}
)

func HistogramVec(name string) *prometheus.HistogramVec {
	return histogramVecs[name]
}

func newCounterVec(factory promauto.Factory) *prometheus.CounterVec {
	return factory.NewCounterVec(prometheus.CounterOpts{
		Name: "shuffle_reader_progress_total",
		Help: "Progress counters reported by shuffle readers.",
	}, []string{"operation_name", "counter"})
}

// OperationCounters reports reader counters of one operation to prometheus.
type OperationCounters struct {
	operationName string
	vec           *prometheus.CounterVec
}

// Counters returns the counter set of operationName, registered on the default registerer.
func Counters(operationName string) *OperationCounters {
	return &OperationCounters{operationName: operationName, vec: defaultCounters}
}

// CountersWith returns a counter set registered on reg.
func CountersWith(reg prometheus.Registerer, operationName string) *OperationCounters {
	return &OperationCounters{operationName: operationName, vec: newCounterVec(promauto.With(reg))}
}

func (o *OperationCounters) Counter(name string) worker.Counter {
	return o.vec.WithLabelValues(o.operationName, strings.Replace(name, "-", "_", -1))
}

func ListenAndServe(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
}
