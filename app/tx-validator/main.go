package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/pkg/errors"
	"github.com/qubic/go-ledger-simulator/business/schema"
	"github.com/qubic/go-ledger-simulator/entities"
	"github.com/qubic/go-ledger-simulator/infrastructure/fixtures"
	"github.com/qubic/go-ledger-simulator/infrastructure/store/pebbledb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const prefix = "QUBIC_TX_VALIDATOR"

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("creating logger: %v", err)
	}
	defer logger.Sync()
	sLogger := logger.Sugar()

	var cfg struct {
		Input               string `conf:"default:-,help:file with transactions or - for stdin"`
		FromStore           bool   `conf:"default:false,help:validate the fixtures stored by the simulator instead of the input"`
		InternalStoreFolder string `conf:"default:store"`
		Strict              bool   `conf:"default:false,help:also check surveyor ids and ballots against the vote count"`
	}

	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %v", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %v", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %v", err)
	}

	txs, err := loadTransactions(cfg.FromStore, cfg.InternalStoreFolder, cfg.Input)
	if err != nil {
		return err
	}

	validator := schema.New()
	validate := validator.Validate
	if cfg.Strict {
		validate = validator.ValidateStrict
	}

	var invalid int
	for i, tx := range txs {
		res := validate(tx)
		if res.Err != nil {
			invalid++
			sLogger.Errorw("Invalid transaction", "index", i, "viewingId", tx.ViewingID, "error", res.Err)
		}
	}

	sLogger.Infow("Validation complete", "transactions", len(txs), "invalid", invalid)
	if invalid > 0 {
		return fmt.Errorf("%d of %d transactions are invalid", invalid, len(txs))
	}

	return nil
}

func loadTransactions(fromStore bool, storeFolder, input string) ([]entities.Transaction, error) {
	if fromStore {
		store, err := pebbledb.NewFixtureStore(storeFolder)
		if err != nil {
			return nil, fmt.Errorf("opening fixture store: %v", err)
		}
		defer store.Close()

		txs, err := store.GetTransactions()
		if err != nil {
			return nil, fmt.Errorf("loading stored transactions: %v", err)
		}
		return txs, nil
	}

	var r io.Reader = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", input)
		}
		defer f.Close()
		r = f
	}

	txs, err := fixtures.ReadTransactions(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading transactions")
	}
	return txs, nil
}
