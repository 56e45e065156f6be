package synopsis

import (
	"encoding/json"
	"testing"

	"github.com/qubic/go-ledger-simulator/entities"
	"github.com/stretchr/testify/require"
)

func TestTally_AddAndRestore(t *testing.T) {
	aggregator, err := NewTally(nil)
	require.NoError(t, err)

	aggregator.AddPublisher("https://abcd.com/", entities.Visit{Duration: 100})
	aggregator.AddPublisher("http://abcd.com/", entities.Visit{Duration: 50, RevisitP: true})
	aggregator.AddPublisher("https://efgh.io/", entities.Visit{Duration: 7})

	state, err := aggregator.Serialize()
	require.NoError(t, err)
	require.JSONEq(t, `{"publishers":{"abcd.com":{"visits":2,"duration":150,"revisits":1},"efgh.io":{"visits":1,"duration":7,"revisits":0}}}`, string(state))

	restored, err := NewTally(state)
	require.NoError(t, err)
	restored.AddPublisher("https://efgh.io/", entities.Visit{Duration: 3})

	tally := restored.(*Tally)
	require.Equal(t, PublisherTally{Visits: 2, Duration: 10}, *tally.Publishers["efgh.io"])
	require.Equal(t, PublisherTally{Visits: 2, Duration: 150, Revisits: 1}, *tally.Publishers["abcd.com"])
}

func TestTally_InvalidState(t *testing.T) {
	_, err := NewTally(json.RawMessage(`{"publishers":`))
	require.Error(t, err)
}
