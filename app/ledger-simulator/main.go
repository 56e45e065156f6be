package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qubic/go-ledger-simulator/business/domain/simulation"
	"github.com/qubic/go-ledger-simulator/business/domain/synopsis"
	"github.com/qubic/go-ledger-simulator/business/domain/tx"
	"github.com/qubic/go-ledger-simulator/business/rng"
	"github.com/qubic/go-ledger-simulator/business/schema"
	"github.com/qubic/go-ledger-simulator/entities"
	"github.com/qubic/go-ledger-simulator/external/elastic"
	"github.com/qubic/go-ledger-simulator/external/kafka"
	"github.com/qubic/go-ledger-simulator/infrastructure/fixtures"
	"github.com/qubic/go-ledger-simulator/infrastructure/store/pebbledb"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const prefix = "QUBIC_LEDGER_SIMULATOR"

type transactionPublisher interface {
	PublishTransactions(ctx context.Context, txs []entities.Transaction) error
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	config := zap.NewProductionConfig()
	// this is just for sugar, to display a readable date instead of an epoch time
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("creating logger: %v", err)
	}
	defer logger.Sync()
	sLogger := logger.Sugar()

	var cfg struct {
		NumTransactions     int           `conf:"help:number of transactions to simulate"`
		NumPublishers       int           `conf:"default:-1,help:number of synopsis publishers or a negative value for a random number"`
		Seed                uint64        `conf:"default:0,help:seed for repeatable runs or 0 for a secure random source"`
		OutputFile          string        `conf:"default:-,help:file to write the transactions to or - for stdout"`
		StoreFixtures       bool          `conf:"default:true"`
		InternalStoreFolder string        `conf:"default:store"`
		PublishWriteTimeout time.Duration `conf:"default:1m"`
		KeepServing         bool          `conf:"default:false"`
		ServerListenAddr    string        `conf:"default:0.0.0.0:8000"`
		MetricsNamespace    string        `conf:"default:qubic_ledger_simulator"`
		Kafka               struct {
			Enabled          bool     `conf:"default:false"`
			BootstrapServers []string `conf:"default:localhost:9092"`
			TxTopic          string   `conf:"default:ledger-fixture-transactions"`
		}
		Elastic struct {
			Enabled bool          `conf:"default:false"`
			Address string        `conf:"default:http://localhost:9200"`
			Index   string        `conf:"default:ledger-fixture-transactions"`
			Timeout time.Duration `conf:"default:10s"`
		}
	}

	cfg.NumTransactions = simulation.DefaultTxCount

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

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %v", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	src := rng.Secure()
	if cfg.Seed != 0 {
		src = rng.Seeded(cfg.Seed)
	}

	metrics := simulation.NewMetrics(cfg.MetricsNamespace)
	simulator := simulation.NewSimulator(tx.NewGenerator(src), schema.New(), sLogger, simulation.WithMetrics(metrics))
	txs, report := simulator.SimulateWithReport(cfg.NumTransactions)

	visitGenerator := synopsis.NewVisitGenerator(src, synopsis.NewTally, sLogger)
	session := visitGenerator.AddSynopsisVisits(entities.SessionData{Ledger: &entities.LedgerProfile{}}, cfg.NumPublishers)

	if err := writeOutput(cfg.OutputFile, txs); err != nil {
		return fmt.Errorf("writing transactions: %v", err)
	}

	var store *pebbledb.Store
	if cfg.StoreFixtures {
		store, err = pebbledb.NewFixtureStore(cfg.InternalStoreFolder)
		if err != nil {
			return fmt.Errorf("creating fixture store: %v", err)
		}
		defer store.Close()

		if err := store.SaveTransactions(txs); err != nil {
			return fmt.Errorf("storing transactions: %v", err)
		}
		if err := store.SetLastRun(report); err != nil {
			return fmt.Errorf("storing run report: %v", err)
		}
	}

	var publishers []transactionPublisher
	if cfg.Kafka.Enabled {
		kafkaMetrics := kprom.NewMetrics(cfg.MetricsNamespace,
			kprom.Registerer(prometheus.DefaultRegisterer),
			kprom.Gatherer(prometheus.DefaultGatherer))
		kcl, err := kgo.NewClient(
			kgo.WithHooks(kafkaMetrics),
			kgo.DefaultProduceTopic(cfg.Kafka.TxTopic),
			kgo.SeedBrokers(cfg.Kafka.BootstrapServers...),
			kgo.ProducerBatchCompression(kgo.ZstdCompression()),
		)
		if err != nil {
			return errors.Wrap(err, "creating kafka client")
		}
		defer kcl.Close()
		publishers = append(publishers, kafka.NewClient(kcl, sLogger))
	}
	if cfg.Elastic.Enabled {
		esClient, err := elastic.NewClient(cfg.Elastic.Address, cfg.Elastic.Index, cfg.Elastic.Timeout)
		if err != nil {
			return fmt.Errorf("creating elastic client: %v", err)
		}
		publishers = append(publishers, esClient)
	}

	if err := publish(publishers, txs, cfg.PublishWriteTimeout); err != nil {
		return fmt.Errorf("publishing transactions: %v", err)
	}

	sLogger.Infow("Simulation run complete",
		"generated", report.Generated,
		"invalid", report.Invalid,
		"newestStamp", report.NewestStamp,
		"oldestStamp", report.OldestStamp,
		"synopsisBytes", len(session.Ledger.Synopsis),
		"publishers", len(publishers))

	if !cfg.KeepServing {
		return nil
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("main: Starting status and metrics endpoint on [%s]", cfg.ServerListenAddr)
		http.HandleFunc("/v1/status", func(w http.ResponseWriter, r *http.Request) {
			lastRun := report
			if store != nil {
				stored, err := store.GetLastRun()
				if err != nil {
					http.Error(w, fmt.Sprintf("getting last run: %v", err), http.StatusInternalServerError)
					return
				}
				lastRun = stored
			}
			data, err := json.Marshal(map[string]any{"lastRun": lastRun})
			if err != nil {
				http.Error(w, fmt.Sprintf("marshalling response: %v", err), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, err = w.Write(data)
			if err != nil {
				http.Error(w, fmt.Sprintf("writing response: %v", err), http.StatusInternalServerError)
				return
			}
		})
		http.Handle("/metrics", promhttp.Handler())
		serverErr <- http.ListenAndServe(cfg.ServerListenAddr, nil)
	}()

	select {
	case <-shutdown:
		return errors.New("shutting down")
	case err := <-serverErr:
		return fmt.Errorf("server error: %v", err)
	}
}

func writeOutput(path string, txs []entities.Transaction) error {
	switch path {
	case "":
		return nil
	case "-":
		return fixtures.WriteTransactions(os.Stdout, txs)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	return fixtures.WriteTransactions(f, txs)
}

func publish(publishers []transactionPublisher, txs []entities.Transaction, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range publishers {
		g.Go(func() error {
			return p.PublishTransactions(ctx, txs)
		})
	}
	return g.Wait()
}
