package simulation

import (
	"testing"
	"time"

	"github.com/qubic/go-ledger-simulator/business/domain/tx"
	"github.com/qubic/go-ledger-simulator/business/rng"
	"github.com/qubic/go-ledger-simulator/business/schema"
	"github.com/qubic/go-ledger-simulator/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var metrics = NewMetrics("test")

var fixedNow = time.Date(2025, 4, 14, 5, 56, 20, 0, time.UTC)

// MockGenerator hands out the same transaction with an increasing count.
type MockGenerator struct {
	generated int
}

func (mg *MockGenerator) Generate() entities.Transaction {
	mg.generated++
	return entities.Transaction{ViewingID: "mock", Count: mg.generated}
}

// MockValidator rejects every transaction with an odd count.
type MockValidator struct {
	validated []entities.Transaction
}

func (mv *MockValidator) Validate(transaction entities.Transaction) schema.Result {
	mv.validated = append(mv.validated, transaction)
	if transaction.Count%2 == 1 {
		return schema.Result{Err: &schema.ValidationError{Errors: []schema.FieldError{{Field: "count", Rule: "even"}}}, Value: transaction}
	}
	return schema.Result{Value: transaction}
}

func TestSimulator_Simulate(t *testing.T) {
	generator := tx.NewGenerator(rng.Seeded(10))
	simulator := NewSimulator(generator, schema.New(), zap.NewNop().Sugar(), WithClock(func() time.Time { return fixedNow }), WithMetrics(metrics))

	txs, report := simulator.SimulateWithReport(5)
	require.Len(t, txs, 5)
	require.Equal(t, 0, report.Invalid)

	period := int64(30 * 24 * 3600 * 1000)
	require.Equal(t, fixedNow.UnixMilli(), txs[0].SubmissionStamp)
	for i := 1; i < len(txs); i++ {
		require.Less(t, txs[i].SubmissionStamp, txs[i-1].SubmissionStamp)
		require.Equal(t, period, txs[i-1].SubmissionStamp-txs[i].SubmissionStamp)
		require.Equal(t, time.UnixMilli(txs[i].SubmissionStamp).UTC(), txs[i].SubmissionDate)
	}

	require.Equal(t, txs[0].SubmissionStamp, report.NewestStamp)
	require.Equal(t, txs[4].SubmissionStamp, report.OldestStamp)
}

func TestSimulator_KeepsInvalidTransactions(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	validator := &MockValidator{}
	simulator := NewSimulator(&MockGenerator{}, validator, zap.New(core).Sugar(), WithClock(func() time.Time { return fixedNow }))

	txs, report := simulator.SimulateWithReport(4)
	require.Len(t, txs, 4)
	require.Len(t, validator.validated, 4)

	// validation sees the rewritten stamp
	for i, transaction := range validator.validated {
		assert.Equal(t, txs[i].SubmissionStamp, transaction.SubmissionStamp)
	}

	assert.Equal(t, 4, report.Generated)
	assert.Equal(t, 2, report.Invalid)
	assert.Equal(t, []string{"mock", "mock"}, report.InvalidIDs)
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestSimulator_NoTransactions(t *testing.T) {
	simulator := NewSimulator(&MockGenerator{}, &MockValidator{}, zap.NewNop().Sugar())

	for _, numTx := range []int{0, -3} {
		txs, report := simulator.SimulateWithReport(numTx)
		assert.Empty(t, txs)
		assert.Equal(t, entities.SimulationReport{}, report)
	}
}

func TestSimulator_DefaultCount(t *testing.T) {
	simulator := NewSimulator(tx.NewGenerator(rng.Seeded(6)), schema.New(), zap.NewNop().Sugar())
	assert.Len(t, simulator.Simulate(DefaultTxCount), 10)
}
