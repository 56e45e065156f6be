package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qubic/go-ledger-simulator/business/domain/consume"
	"github.com/qubic/go-ledger-simulator/business/schema"
	"github.com/qubic/go-ledger-simulator/entities"
	"github.com/qubic/go-ledger-simulator/external/elastic"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "QUBIC_FIXTURE_CONSUMER"

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
		return errors.Wrap(err, "creating logger")
	}
	defer logger.Sync()
	sLogger := logger.Sugar()

	var cfg struct {
		Elastic struct {
			Addresses   []string `conf:"default:http://localhost:9200"`
			Username    string   `conf:"optional"`
			Password    string   `conf:"optional,mask"`
			IndexName   string   `conf:"default:ledger-fixture-transactions"`
			Certificate string   `conf:"optional"`
			MaxRetries  int      `conf:"default:15"`
			Stub        bool     `conf:"optional"` // only for testing
		}
		Broker struct {
			BootstrapServers []string `conf:"default:localhost:9092"`
			MetricsPort      int      `conf:"default:9999"`
			MetricsNamespace string   `conf:"default:qubic_fixture_consumer"`
			ConsumeTopic     string   `conf:"default:ledger-fixture-transactions"`
			ConsumerGroup    string   `conf:"default:ledger-fixture-elastic"`
			DeadLetterTopic  string   `conf:"default:ledger-fixture-dead-letters"`
		}
		Sync struct {
			Enabled bool `conf:"default:true"` // only for testing
		}
	}

	if err := conf.Parse(os.Args[1:], envPrefix, &cfg); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(envPrefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config usage")
			}
			fmt.Println(usage)
			return nil
		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(envPrefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config version")
			}
			fmt.Println(version)
			return nil
		}
		return errors.Wrap(err, "parsing config")
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return errors.Wrap(err, "generating config for output")
	}
	log.Printf("main: Config :\n%v\n", out)

	m := kprom.NewMetrics(cfg.Broker.MetricsNamespace,
		kprom.Registerer(prometheus.DefaultRegisterer),
		kprom.Gatherer(prometheus.DefaultGatherer))
	kcl, err := kgo.NewClient(
		kgo.WithHooks(m),
		kgo.SeedBrokers(cfg.Broker.BootstrapServers...),
		kgo.ConsumeTopics(cfg.Broker.ConsumeTopic),
		kgo.ConsumerGroup(cfg.Broker.ConsumerGroup),
		kgo.BlockRebalanceOnPoll(),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return errors.Wrap(err, "creating kafka client")
	}
	defer kcl.Close()

	var indexer consume.TransactionIndexer
	if cfg.Elastic.Stub {
		sLogger.Warn("Using stub elastic client.")
		indexer = &indexerStub{}
	} else {
		var cert []byte
		if cfg.Elastic.Certificate != "" {
			cert, err = os.ReadFile(cfg.Elastic.Certificate)
			if err != nil {
				sLogger.Warnw("Could not read elastic certificate", "error", err)
			}
		}
		esClient, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses:     cfg.Elastic.Addresses,
			Username:      cfg.Elastic.Username,
			Password:      cfg.Elastic.Password,
			CACert:        cert,
			RetryOnStatus: []int{502, 503, 504, 429},
			MaxRetries:    cfg.Elastic.MaxRetries,
			RetryBackoff:  calculateBackoff(sLogger),
		})
		if err != nil {
			return errors.Wrap(err, "creating elastic client")
		}
		indexer = elastic.NewClientFromES(esClient, cfg.Elastic.IndexName)
	}

	consumer := consume.NewFixtureConsumer(kcl, indexer, schema.New(), cfg.Broker.DeadLetterTopic,
		consume.NewMetrics(cfg.Broker.MetricsNamespace), sLogger)
	procError := make(chan error, 1)
	if cfg.Sync.Enabled {
		go func() {
			procError <- consumer.Consume()
		}()
	} else {
		sLogger.Warn("Message consuming disabled")
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverError := make(chan error, 1)
	go func() {
		sLogger.Infow("Starting health and metrics endpoint", "port", cfg.Broker.MetricsPort)
		http.HandleFunc("/health", health)
		http.Handle("/metrics", promhttp.Handler())
		serverError <- http.ListenAndServe(fmt.Sprintf(":%d", cfg.Broker.MetricsPort), nil)
	}()

	sLogger.Info("Service started.")

	for {
		select {
		case <-shutdown:
			sLogger.Info("Received shutdown signal, shutting down...")
			return nil
		case err := <-procError:
			return errors.Wrap(err, "processing")
		case err := <-serverError:
			return errors.Wrap(err, "starting server")
		}
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"UP"}`))
}

// calculateBackoff needs retry number because of multi threading
func calculateBackoff(logger *zap.SugaredLogger) func(i int) time.Duration {
	return func(i int) time.Duration {
		var d time.Duration
		if i < 10 {
			d = time.Second*time.Duration(i) + randomMillis()
		} else {
			d = time.Second*30 + randomMillis()
		}
		logger.Warnw("Elasticsearch client retry", "attempt", i, "backoff", d)
		return d
	}
}

func randomMillis() time.Duration {
	return time.Duration(rand.IntN(1000)) * time.Millisecond
}

type indexerStub struct{}

func (s *indexerStub) PublishTransactions(_ context.Context, _ []entities.Transaction) error {
	return nil
}
