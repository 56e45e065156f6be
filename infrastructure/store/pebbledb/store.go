package pebbledb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/qubic/go-ledger-simulator/entities"
)

const (
	lastRunKey        = 0x00
	transactionPrefix = 0x01
)

type Store struct {
	db *pebble.DB
}

func NewFixtureStore(storeDir string) (*Store, error) {
	db, err := pebble.Open(filepath.Join(storeDir, "ledger-fixture-store"), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %v", err)
	}

	return &Store{db: db}, nil
}

// transactions are ordered by submission stamp, ties broken by viewing id
func transactionKey(tx entities.Transaction) []byte {
	key := []byte{transactionPrefix}
	key = binary.BigEndian.AppendUint64(key, uint64(tx.SubmissionStamp))
	return append(key, []byte(tx.ViewingID)...)
}

func (s *Store) SaveTransactions(txs []entities.Transaction) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, tx := range txs {
		// keys sort as unsigned, a negative stamp would land after every positive one
		if tx.SubmissionStamp <= 0 {
			return fmt.Errorf("transaction %s has invalid submission stamp [%d]", tx.ViewingID, tx.SubmissionStamp)
		}
		value, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("marshalling transaction %s: %v", tx.ViewingID, err)
		}
		if err := batch.Set(transactionKey(tx), value, nil); err != nil {
			return fmt.Errorf("adding transaction %s to batch: %v", tx.ViewingID, err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("committing batch: %v", err)
	}

	return nil
}

// GetTransactions returns all stored transactions, oldest first.
func (s *Store) GetTransactions() ([]entities.Transaction, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{transactionPrefix},
		UpperBound: []byte{transactionPrefix + 1},
	})
	if err != nil {
		return nil, fmt.Errorf("creating iterator: %v", err)
	}
	defer iter.Close()

	var txs []entities.Transaction
	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, fmt.Errorf("getting value from iter: %v", err)
		}

		var tx entities.Transaction
		if err := json.Unmarshal(value, &tx); err != nil {
			return nil, fmt.Errorf("unmarshalling transaction: %v", err)
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

func (s *Store) SetLastRun(report entities.SimulationReport) error {
	value, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshalling report: %v", err)
	}

	err = s.db.Set([]byte{lastRunKey}, value, pebble.Sync)
	if err != nil {
		return fmt.Errorf("setting last run: %v", err)
	}

	return nil
}

func (s *Store) GetLastRun() (entities.SimulationReport, error) {
	value, closer, err := s.db.Get([]byte{lastRunKey})
	if errors.Is(err, pebble.ErrNotFound) {
		return entities.SimulationReport{}, entities.ErrStoreEntityNotFound
	}
	if err != nil {
		return entities.SimulationReport{}, fmt.Errorf("getting last run: %v", err)
	}
	defer closer.Close()

	var report entities.SimulationReport
	if err := json.Unmarshal(value, &report); err != nil {
		return entities.SimulationReport{}, fmt.Errorf("unmarshalling report: %v", err)
	}

	return report, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
