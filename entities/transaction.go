package entities

import (
	"encoding/json"
	"time"
)

// SatoshisPerUnit is the number of satoshis in one unit of the base ledger currency.
const SatoshisPerUnit = 100_000_000

type Transaction struct {
	ViewingID       string         `json:"viewingId" validate:"required,uuidshaped"`
	SurveyorID      string         `json:"surveyorId" validate:"required,base64len32"`
	Contribution    Contribution   `json:"contribution"`
	SubmissionStamp int64          `json:"submissionStamp" validate:"required,gt=0"`
	SubmissionDate  time.Time      `json:"submissionDate"`
	SubmissionID    string         `json:"submissionId" validate:"required,hexlen32"`
	Count           int            `json:"count" validate:"gte=0"`
	Credential      string         `json:"credential"`
	SurveyorIDs     []string       `json:"surveyorIds" validate:"omitempty,dive,base64len32"`
	Satoshis        int64          `json:"satoshis" validate:"gte=0"`
	Votes           int            `json:"votes" validate:"gte=0"`
	Ballots         map[string]int `json:"ballots" validate:"omitempty,dive,keys,publisherhost,endkeys,gte=0"`
}

type Contribution struct {
	Fiat     Fiat               `json:"fiat"`
	Rates    map[string]float64 `json:"rates,omitempty" validate:"omitempty,dive,keys,currencycode,endkeys,gte=0,decimals2"`
	Satoshis int64              `json:"satoshis" validate:"gte=0"`
	Fee      int64              `json:"fee" validate:"gte=0"`
}

type Fiat struct {
	Amount   float64 `json:"amount" validate:"gte=0,decimals2"`
	Currency string  `json:"currency" validate:"required"`
}

// SetSubmissionStamp sets the stamp and the date derived from it.
func (t *Transaction) SetSubmissionStamp(stamp int64) {
	t.SubmissionStamp = stamp
	t.SubmissionDate = time.UnixMilli(stamp).UTC()
}

type Visit struct {
	Duration int64 `json:"duration"`
	RevisitP bool  `json:"revisitP"`
}

type SessionData struct {
	Ledger *LedgerProfile `json:"ledger,omitempty"`
}

type LedgerProfile struct {
	Synopsis json.RawMessage `json:"synopsis,omitempty"`
}

// SimulationReport summarizes one simulation run.
type SimulationReport struct {
	Generated   int      `json:"generated"`
	Invalid     int      `json:"invalid"`
	InvalidIDs  []string `json:"invalidIds,omitempty"`
	NewestStamp int64    `json:"newestStamp"`
	OldestStamp int64    `json:"oldestStamp"`
}
