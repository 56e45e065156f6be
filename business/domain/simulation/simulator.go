package simulation

import (
	"time"

	"github.com/qubic/go-ledger-simulator/business/schema"
	"github.com/qubic/go-ledger-simulator/entities"
	"go.uber.org/zap"
)

const (
	DefaultTxCount     = 10
	ContributionPeriod = 30 * 24 * time.Hour
)

type Generator interface {
	Generate() entities.Transaction
}

type Validator interface {
	Validate(tx entities.Transaction) schema.Result
}

type Simulator struct {
	generator Generator
	validator Validator
	logger    *zap.SugaredLogger
	metrics   *Metrics
	now       func() time.Time
}

type Option func(*Simulator)

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

func WithMetrics(metrics *Metrics) Option {
	return func(s *Simulator) { s.metrics = metrics }
}

func NewSimulator(generator Generator, validator Validator, logger *zap.SugaredLogger, opts ...Option) *Simulator {
	s := &Simulator{
		generator: generator,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate generates numTx transactions, one per past contribution period, most
// recent first. Transactions failing validation are logged and still returned.
func (s *Simulator) Simulate(numTx int) []entities.Transaction {
	txs, _ := s.SimulateWithReport(numTx)
	return txs
}

func (s *Simulator) SimulateWithReport(numTx int) ([]entities.Transaction, entities.SimulationReport) {
	if numTx < 0 {
		numTx = 0
	}

	now := s.now().UnixMilli()
	txs := make([]entities.Transaction, 0, numTx)
	report := entities.SimulationReport{Generated: numTx}

	for i := 0; i < numTx; i++ {
		tx := s.generator.Generate()
		tx.SetSubmissionStamp(now - int64(i)*ContributionPeriod.Milliseconds())

		res := s.validator.Validate(tx)
		if res.Err != nil {
			s.logger.Warnw("Simulated transaction failed validation", "index", i, "viewingId", tx.ViewingID, "error", res.Err)
			report.Invalid++
			report.InvalidIDs = append(report.InvalidIDs, tx.ViewingID)
		}

		txs = append(txs, tx)
	}

	if numTx > 0 {
		report.NewestStamp = txs[0].SubmissionStamp
		report.OldestStamp = txs[numTx-1].SubmissionStamp
	}
	if s.metrics != nil {
		s.metrics.ObserveRun(report)
	}

	s.logger.Infow("Finished simulation", "generated", report.Generated, "invalid", report.Invalid)
	return txs, report
}
