package synopsis

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/qubic/go-ledger-simulator/entities"
)

type PublisherTally struct {
	Visits   int   `json:"visits"`
	Duration int64 `json:"duration"`
	Revisits int   `json:"revisits"`
}

// Tally is a minimal Aggregator that counts visits and accumulated duration per
// publisher host.
type Tally struct {
	Publishers map[string]*PublisherTally `json:"publishers"`
}

// NewTally is a Factory for Tally aggregators.
func NewTally(state json.RawMessage) (Aggregator, error) {
	t := Tally{}
	if len(state) > 0 {
		if err := json.Unmarshal(state, &t); err != nil {
			return nil, fmt.Errorf("unmarshalling synopsis state: %w", err)
		}
	}
	if t.Publishers == nil {
		t.Publishers = make(map[string]*PublisherTally)
	}
	return &t, nil
}

func (t *Tally) AddPublisher(rawURL string, visit entities.Visit) {
	publisher := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		publisher = u.Host
	}

	pt, ok := t.Publishers[publisher]
	if !ok {
		pt = &PublisherTally{}
		t.Publishers[publisher] = pt
	}
	pt.Visits++
	pt.Duration += visit.Duration
	if visit.RevisitP {
		pt.Revisits++
	}
}

func (t *Tally) Serialize() (json.RawMessage, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshalling synopsis: %w", err)
	}
	return data, nil
}
