package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/qubic/go-ledger-simulator/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

type MockKafkaClient struct {
	shouldError bool
	locker      sync.Mutex
	records     []*kgo.Record
}

func (mkc *MockKafkaClient) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {

	if mkc.shouldError {
		go promise(r, errors.New("dummy error"))
		return
	}

	mkc.locker.Lock()
	mkc.records = append(mkc.records, r)
	mkc.locker.Unlock()
	go promise(r, nil)
}

func testTransactions() []entities.Transaction {
	first := entities.Transaction{ViewingID: "3a7cf1b6-5f8f-4c8e-9d8c-0b9a9f3f1c2d", Count: 1, Votes: 1, Ballots: map[string]int{"abcd.com": 1}}
	first.SetSubmissionStamp(1744610180000)
	second := entities.Transaction{ViewingID: "5d0e4c9a-8c1b-4b3e-a4f7-7f2d1e6c9b10"}
	second.SetSubmissionStamp(1744610180000 - 2592000000)
	return []entities.Transaction{first, second}
}

func TestClient_PublishTransactions(t *testing.T) {

	testData := []struct {
		name         string
		transactions []entities.Transaction
		shouldError  bool
	}{
		{
			name:         "TestPublishTransactions_1",
			transactions: testTransactions(),
		},
		{
			name:         "TestPublishTransactions_Empty",
			transactions: nil,
		},
		{
			name:         "TestPublishTransactions_Error",
			transactions: testTransactions(),
			shouldError:  true,
		},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			mockClient := &MockKafkaClient{shouldError: testRun.shouldError}
			client := NewClient(mockClient, zap.NewNop().Sugar())

			err := client.PublishTransactions(context.Background(), testRun.transactions)
			if testRun.shouldError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, mockClient.records, len(testRun.transactions))
		})
	}
}

func TestCreateTxRecord(t *testing.T) {
	tx := testTransactions()[0]

	record, err := createTxRecord(tx)
	require.NoError(t, err)
	assert.Equal(t, []byte(tx.ViewingID), record.Key)

	var decoded entities.Transaction
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, tx, decoded)
}
