package simulation

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/qubic/go-ledger-simulator/entities"
)

type Metrics struct {
	generatedTransactionsCounter prometheus.Counter
	invalidTransactionsCounter   prometheus.Counter
	lastRunStampGauge            prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	m := Metrics{
		generatedTransactionsCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_generated_transactions", namespace),
			Help: "The number of simulated transactions",
		}),
		invalidTransactionsCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_invalid_transactions", namespace),
			Help: "The number of simulated transactions that failed validation",
		}),
		lastRunStampGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_last_run_stamp", namespace),
			Help: "The submission stamp of the most recent simulated transaction",
		}),
	}
	return &m
}

func (metrics *Metrics) ObserveRun(report entities.SimulationReport) {
	metrics.generatedTransactionsCounter.Add(float64(report.Generated))
	metrics.invalidTransactionsCounter.Add(float64(report.Invalid))
	metrics.lastRunStampGauge.Set(float64(report.NewestStamp))
}
