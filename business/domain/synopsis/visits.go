package synopsis

import (
	"encoding/json"

	"github.com/qubic/go-ledger-simulator/business/hostname"
	"github.com/qubic/go-ledger-simulator/business/rng"
	"github.com/qubic/go-ledger-simulator/entities"
	"go.uber.org/zap"
)

const (
	// RandomPublisherCount lets AddSynopsisVisits pick the number of publishers.
	RandomPublisherCount  = -1
	MaxPublishers         = 100
	MaxVisitsPerPublisher = 10
	MaxVisitDurationMs    = 60_000
)

var protocols = []string{"http://", "https://"}

// Aggregator collects publisher visits and can be serialized back into a session.
type Aggregator interface {
	AddPublisher(url string, visit entities.Visit)
	Serialize() (json.RawMessage, error)
}

// Factory restores an Aggregator from a previously serialized state. An empty state
// yields an empty aggregator.
type Factory func(state json.RawMessage) (Aggregator, error)

type VisitGenerator struct {
	src           rng.Source
	newAggregator Factory
	logger        *zap.SugaredLogger
}

func NewVisitGenerator(src rng.Source, newAggregator Factory, logger *zap.SugaredLogger) *VisitGenerator {
	return &VisitGenerator{
		src:           src,
		newAggregator: newAggregator,
		logger:        logger,
	}
}

// AddSynopsisVisits feeds random visits for numPublishers random hosts into the
// session's synopsis. Pass RandomPublisherCount to draw the number of publishers.
// On any failure the session is returned exactly as passed in.
func (vg *VisitGenerator) AddSynopsisVisits(session entities.SessionData, numPublishers int) entities.SessionData {
	if session.Ledger == nil {
		vg.logger.Errorw("Skipping synopsis visits", "error", entities.ErrNoLedgerProfile)
		return session
	}

	aggregator, err := vg.newAggregator(session.Ledger.Synopsis)
	if err != nil {
		vg.logger.Errorw("Skipping synopsis visits, restoring synopsis failed", "error", err)
		return session
	}

	if numPublishers < 0 {
		numPublishers = vg.src.Uniform(MaxPublishers + 1)
	}

	hosts := make([]string, 0, numPublishers)
	for i := 0; i < numPublishers; i++ {
		hosts = append(hosts, hostname.Random(vg.src))
	}

	var nrVisits int
	for _, host := range hosts {
		visits := vg.src.Uniform(MaxVisitsPerPublisher + 1)
		for i := 0; i < visits; i++ {
			url := rng.Pick(vg.src, protocols) + host + "/"
			aggregator.AddPublisher(url, entities.Visit{
				Duration: int64(vg.src.Uniform(MaxVisitDurationMs + 1)),
				RevisitP: false,
			})
		}
		nrVisits += visits
	}

	state, err := aggregator.Serialize()
	if err != nil {
		vg.logger.Errorw("Skipping synopsis visits, serializing synopsis failed", "error", err)
		return session
	}

	ledger := *session.Ledger
	ledger.Synopsis = state
	session.Ledger = &ledger

	vg.logger.Infow("Added synopsis visits", "publishers", numPublishers, "visits", nrVisits)
	return session
}
