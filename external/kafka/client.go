package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/qubic/go-ledger-simulator/entities"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

type KafkaClient interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

type Client struct {
	kcl    KafkaClient
	logger *zap.SugaredLogger
}

func NewClient(kafkaClient KafkaClient, logger *zap.SugaredLogger) *Client {
	return &Client{
		kcl:    kafkaClient,
		logger: logger,
	}
}

func (kc *Client) PublishTransactions(ctx context.Context, txs []entities.Transaction) error {

	records := make([]*kgo.Record, 0, len(txs))
	for _, tx := range txs {
		record, err := createTxRecord(tx)
		if err != nil {
			return errors.Wrap(err, "creating transaction record")
		}
		records = append(records, record)
	}

	var wg sync.WaitGroup
	errorChannel := make(chan error, len(records))

	for _, record := range records {
		wg.Add(1)
		kc.kcl.Produce(ctx, record, func(r *kgo.Record, err error) {
			defer wg.Done()
			if err != nil {
				kc.logger.Errorw("Error while producing transaction record", "key", string(r.Key), "error", err)
				errorChannel <- err
			}
		})
	}

	wg.Wait()
	close(errorChannel)

	var failed int
	for range errorChannel {
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("producing transaction records: %d of %d failed", failed, len(records))
	}

	return nil
}

func createTxRecord(tx entities.Transaction) (*kgo.Record, error) {

	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("marshalling transaction to json: %w", err)
	}

	return &kgo.Record{
		Key:   []byte(tx.ViewingID),
		Value: payload,
	}, nil

}
