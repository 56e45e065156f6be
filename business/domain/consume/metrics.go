package consume

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	consumedRecordsCounter prometheus.Counter
	invalidRecordsCounter  prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	m := Metrics{
		consumedRecordsCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_consumed_records", namespace),
			Help: "The number of consumed transaction records",
		}),
		invalidRecordsCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_invalid_records", namespace),
			Help: "The number of records forwarded to the dead letter topic",
		}),
	}
	return &m
}

func (metrics *Metrics) IncConsumedRecords() {
	metrics.consumedRecordsCounter.Inc()
}

func (metrics *Metrics) AddInvalidRecords(n int) {
	metrics.invalidRecordsCounter.Add(float64(n))
}
