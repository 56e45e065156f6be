package tx

import (
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/qubic/go-ledger-simulator/business/domain/contribution"
	"github.com/qubic/go-ledger-simulator/business/hostname"
	"github.com/qubic/go-ledger-simulator/business/rng"
	"github.com/qubic/go-ledger-simulator/entities"
)

const (
	MaxCount = 100
	// PlaceholderCredential stands in for a real surveyor credential.
	PlaceholderCredential = "placeholder-credential"

	idByteLength = 32
)

type Generator struct {
	src        rng.Source
	now        func() time.Time
	credential string
}

type GeneratorOption func(*Generator)

func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

func WithCredential(credential string) GeneratorOption {
	return func(g *Generator) { g.credential = credential }
}

func NewGenerator(src rng.Source, opts ...GeneratorOption) *Generator {
	g := &Generator{
		src:        src,
		now:        time.Now,
		credential: PlaceholderCredential,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a fully populated contribution transaction. The reference fields
// (satoshis, votes) and the ballots are consistent by construction, the result is not
// validated.
func (g *Generator) Generate() entities.Transaction {
	count := g.src.Uniform(MaxCount + 1)
	contrib := contribution.Generate(g.src)

	surveyorIDs := make([]string, 0, count)
	for i := 0; i < count; i++ {
		surveyorIDs = append(surveyorIDs, g.base64ID())
	}

	tx := entities.Transaction{
		ViewingID:    g.viewingID(),
		SurveyorID:   g.base64ID(),
		Contribution: contrib,
		SubmissionID: hex.EncodeToString(rng.Bytes(g.src, idByteLength)),
		Count:        count,
		Credential:   g.credential,
		SurveyorIDs:  surveyorIDs,
		Satoshis:     contrib.Satoshis,
		Votes:        count,
	}
	tx.SetSubmissionStamp(g.now().UnixMilli())
	tx.Ballots = GenerateBallots(g.src, tx.Votes)

	return tx
}

func (g *Generator) viewingID() string {
	id, err := uuid.NewRandomFromReader(rng.Reader(g.src))
	if err != nil {
		// rng.Reader never fails
		panic("generating viewing id: " + err.Error())
	}
	return id.String()
}

func (g *Generator) base64ID() string {
	return base64.StdEncoding.EncodeToString(rng.Bytes(g.src, idByteLength))
}

// GenerateBallots spreads votes over random publisher hosts. Every iteration casts
// between one and all of the remaining votes, so the values always add up to votes.
func GenerateBallots(src rng.Source, votes int) map[string]int {
	ballots := make(map[string]int)

	remaining := votes
	for remaining > 0 {
		cast := min(rng.Between(src, 1, remaining+1), remaining)
		ballots[hostname.Random(src)] += cast
		remaining -= cast
	}

	return ballots
}
