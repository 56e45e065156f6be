package synopsis

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/qubic/go-ledger-simulator/business/hostname"
	"github.com/qubic/go-ledger-simulator/business/rng"
	"github.com/qubic/go-ledger-simulator/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var ErrMock = errors.New("mock error")

type addPublisherCall struct {
	url   string
	visit entities.Visit
}

type MockAggregator struct {
	restoredFrom    json.RawMessage
	calls           []addPublisherCall
	shouldErrSerial bool
}

func (ma *MockAggregator) AddPublisher(url string, visit entities.Visit) {
	ma.calls = append(ma.calls, addPublisherCall{url: url, visit: visit})
}

func (ma *MockAggregator) Serialize() (json.RawMessage, error) {
	if ma.shouldErrSerial {
		return nil, ErrMock
	}
	return json.RawMessage(`{"calls":1}`), nil
}

func mockFactory(mock *MockAggregator) Factory {
	return func(state json.RawMessage) (Aggregator, error) {
		mock.restoredFrom = state
		return mock, nil
	}
}

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core).Sugar(), logs
}

func TestVisitGenerator_ZeroPublishers(t *testing.T) {
	mock := &MockAggregator{}
	logger, _ := observedLogger()
	vg := NewVisitGenerator(rng.Seeded(1), mockFactory(mock), logger)

	session := entities.SessionData{Ledger: &entities.LedgerProfile{Synopsis: json.RawMessage(`{"prior":true}`)}}
	got := vg.AddSynopsisVisits(session, 0)

	require.Empty(t, mock.calls)
	require.JSONEq(t, `{"prior":true}`, string(mock.restoredFrom))
	require.NotNil(t, got.Ledger)
	require.JSONEq(t, `{"calls":1}`, string(got.Ledger.Synopsis))
}

func TestVisitGenerator_Visits(t *testing.T) {
	mock := &MockAggregator{}
	logger, logs := observedLogger()
	vg := NewVisitGenerator(rng.Seeded(42), mockFactory(mock), logger)

	session := entities.SessionData{Ledger: &entities.LedgerProfile{}}
	vg.AddSynopsisVisits(session, 20)

	hosts := make(map[string]bool)
	for _, call := range mock.calls {
		host, ok := strings.CutPrefix(call.url, "https://")
		if !ok {
			host, ok = strings.CutPrefix(call.url, "http://")
		}
		require.True(t, ok, "unexpected protocol in %s", call.url)
		require.True(t, strings.HasSuffix(host, "/"))

		host = strings.TrimSuffix(host, "/")
		require.Regexp(t, hostname.Pattern, host)
		hosts[host] = true

		require.GreaterOrEqual(t, call.visit.Duration, int64(0))
		require.LessOrEqual(t, call.visit.Duration, int64(MaxVisitDurationMs))
		require.False(t, call.visit.RevisitP)
	}
	require.LessOrEqual(t, len(hosts), 20)
	require.LessOrEqual(t, len(mock.calls), 20*MaxVisitsPerPublisher)

	entries := logs.FilterMessage("Added synopsis visits").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(20), entries[0].ContextMap()["publishers"])
	assert.Equal(t, int64(len(mock.calls)), entries[0].ContextMap()["visits"])
}

func TestVisitGenerator_RandomPublisherCount(t *testing.T) {
	logger, logs := observedLogger()
	vg := NewVisitGenerator(rng.Seeded(9), NewTally, logger)

	session := entities.SessionData{Ledger: &entities.LedgerProfile{}}
	got := vg.AddSynopsisVisits(session, RandomPublisherCount)
	require.NotNil(t, got.Ledger.Synopsis)

	entries := logs.FilterMessage("Added synopsis visits").All()
	require.Len(t, entries, 1)
	publishers := entries[0].ContextMap()["publishers"].(int64)
	require.GreaterOrEqual(t, publishers, int64(0))
	require.LessOrEqual(t, publishers, int64(MaxPublishers))
}

func TestVisitGenerator_FailuresLeaveSessionUntouched(t *testing.T) {
	prior := &entities.LedgerProfile{Synopsis: json.RawMessage(`{"prior":true}`)}

	testData := []struct {
		name    string
		session entities.SessionData
		factory Factory
	}{
		{
			name:    "no ledger profile",
			session: entities.SessionData{},
			factory: NewTally,
		},
		{
			name:    "restoring fails",
			session: entities.SessionData{Ledger: prior},
			factory: func(json.RawMessage) (Aggregator, error) { return nil, ErrMock },
		},
		{
			name:    "serializing fails",
			session: entities.SessionData{Ledger: prior},
			factory: mockFactory(&MockAggregator{shouldErrSerial: true}),
		},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			logger, logs := observedLogger()
			vg := NewVisitGenerator(rng.Seeded(3), testRun.factory, logger)

			got := vg.AddSynopsisVisits(testRun.session, 5)
			assert.Equal(t, testRun.session, got)
			assert.Same(t, testRun.session.Ledger, got.Ledger)
			assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
		})
	}
	assert.JSONEq(t, `{"prior":true}`, string(prior.Synopsis))
}

func TestVisitGenerator_DoesNotMutateCallerProfile(t *testing.T) {
	prior := &entities.LedgerProfile{}
	vg := NewVisitGenerator(rng.Seeded(4), NewTally, zap.NewNop().Sugar())

	got := vg.AddSynopsisVisits(entities.SessionData{Ledger: prior}, 3)
	assert.Nil(t, prior.Synopsis)
	assert.NotNil(t, got.Ledger.Synopsis)
}
