package consume

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/qubic/go-ledger-simulator/business/schema"
	"github.com/qubic/go-ledger-simulator/entities"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

const (
	maxPollRecords        = 1000
	validationErrorHeader = "validation-error"
)

type KafkaClient interface {
	PollRecords(ctx context.Context, maxPollRecords int) kgo.Fetches
	CommitUncommittedOffsets(ctx context.Context) error
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	AllowRebalance()
}

type TransactionIndexer interface {
	PublishTransactions(ctx context.Context, txs []entities.Transaction) error
}

type Validator interface {
	Validate(tx entities.Transaction) schema.Result
}

// FixtureConsumer reads transactions from kafka, indexes the valid ones and forwards
// the invalid records to a dead letter topic.
type FixtureConsumer struct {
	kafkaClient     KafkaClient
	indexer         TransactionIndexer
	validator       Validator
	deadLetterTopic string
	metrics         *Metrics
	logger          *zap.SugaredLogger
}

func NewFixtureConsumer(client KafkaClient, indexer TransactionIndexer, validator Validator, deadLetterTopic string, metrics *Metrics, logger *zap.SugaredLogger) *FixtureConsumer {
	return &FixtureConsumer{
		kafkaClient:     client,
		indexer:         indexer,
		validator:       validator,
		deadLetterTopic: deadLetterTopic,
		metrics:         metrics,
		logger:          logger,
	}
}

func (c *FixtureConsumer) Consume() error {
	for {
		valid, invalid, err := c.consumeBatch(context.Background())
		if err != nil {
			// abort, the error needs to be fixed before consuming again
			c.logger.Errorw("Error consuming batch", "error", err)
			return errors.Wrap(err, "consuming batch")
		}
		c.logger.Infow("Processed transactions", "valid", valid, "invalid", invalid)
		time.Sleep(time.Second)
	}
}

func (c *FixtureConsumer) consumeBatch(ctx context.Context) (int, int, error) {
	defer c.kafkaClient.AllowRebalance() // because of the configured kgo.BlockRebalanceOnPoll() option
	fetches := c.kafkaClient.PollRecords(ctx, maxPollRecords)
	if errs := fetches.Errors(); len(errs) > 0 {
		for _, err := range errs {
			c.logger.Errorw("Error fetching records", "topic", err.Topic, "partition", err.Partition, "error", err.Err)
		}
		return -1, -1, errors.New("fetching records")
	}

	var valid []entities.Transaction
	var deadLetters []*kgo.Record
	iter := fetches.RecordIter()
	for !iter.Done() {
		record := iter.Next()
		c.metrics.IncConsumedRecords()

		tx, err := c.checkRecord(record)
		if err != nil {
			c.logger.Warnw("Rejecting transaction record", "key", string(record.Key), "error", err)
			deadLetters = append(deadLetters, c.deadLetter(record, err))
			continue
		}
		valid = append(valid, tx)
	}

	if len(valid) > 0 {
		err := c.indexer.PublishTransactions(ctx, valid)
		if err != nil {
			return -1, -1, errors.Wrapf(err, "indexing [%d] transactions", len(valid))
		}
	}

	if len(deadLetters) > 0 {
		err := c.kafkaClient.ProduceSync(ctx, deadLetters...).FirstErr()
		if err != nil {
			return -1, -1, errors.Wrap(err, "producing dead letter records")
		}
		c.metrics.AddInvalidRecords(len(deadLetters))
	}

	err := c.kafkaClient.CommitUncommittedOffsets(ctx)
	if err != nil {
		return -1, -1, errors.Wrap(err, "committing offsets")
	}

	return len(valid), len(deadLetters), nil
}

func (c *FixtureConsumer) checkRecord(record *kgo.Record) (entities.Transaction, error) {
	var tx entities.Transaction
	if err := json.Unmarshal(record.Value, &tx); err != nil {
		return entities.Transaction{}, errors.Wrap(err, "unmarshalling record value")
	}

	res := c.validator.Validate(tx)
	if res.Err != nil {
		return entities.Transaction{}, res.Err
	}
	return res.Value, nil
}

func (c *FixtureConsumer) deadLetter(record *kgo.Record, reason error) *kgo.Record {
	return &kgo.Record{
		Topic: c.deadLetterTopic,
		Key:   record.Key,
		Value: record.Value,
		Headers: []kgo.RecordHeader{
			{Key: validationErrorHeader, Value: []byte(reason.Error())},
		},
	}
}
