package contribution

import (
	"math"
	"strings"

	"github.com/qubic/go-ledger-simulator/business/rng"
	"github.com/qubic/go-ledger-simulator/entities"
)

const (
	// BaseRate is the fiat price of one base ledger unit before jitter is applied.
	BaseRate        = 620.0
	DefaultCurrency = "USD"
	// DefaultFee is 0.0001 base ledger units.
	DefaultFee int64 = entities.SatoshisPerUnit / 10_000

	jitterMin   = 0.9
	jitterRange = 0.2
)

var fiatTargets = []float64{5, 10, 15}

type options struct {
	satoshis *int64
	currency string
	rate     *float64
	fee      *int64
}

type Option func(*options)

func WithSatoshis(satoshis int64) Option {
	return func(o *options) { o.satoshis = &satoshis }
}

func WithCurrency(currency string) Option {
	return func(o *options) { o.currency = currency }
}

// WithRate sets the exchange rate of the contribution currency.
func WithRate(rate float64) Option {
	return func(o *options) { o.rate = &rate }
}

func WithFee(fee int64) Option {
	return func(o *options) { o.fee = &fee }
}

// Generate builds a contribution whose fiat amount, rates and satoshis agree with each
// other. Values passed as options are used verbatim, everything else is synthesized.
// The default fee is always DefaultFee.
func Generate(src rng.Source, opts ...Option) entities.Contribution {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	usdRate := BaseRate * (jitterMin + jitterRange*rng.Float64(src))

	currency := DefaultCurrency
	if o.currency != "" {
		currency = strings.ToUpper(o.currency)
	}

	rate := usdRate
	if o.rate != nil {
		rate = *o.rate
	}

	var satoshis int64
	if o.satoshis != nil {
		satoshis = *o.satoshis
	} else {
		target := rng.Pick(src, fiatTargets)
		satoshis = int64(math.Round(target / rate * entities.SatoshisPerUnit))
	}

	fee := DefaultFee
	if o.fee != nil {
		fee = *o.fee
	}

	rates := map[string]float64{currency: Round2(rate)}
	if currency != DefaultCurrency {
		rates[DefaultCurrency] = usdRate
	}

	return entities.Contribution{
		Fiat: entities.Fiat{
			Amount:   Round2(float64(satoshis) / entities.SatoshisPerUnit * rate),
			Currency: currency,
		},
		Rates:    rates,
		Satoshis: satoshis,
		Fee:      fee,
	}
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
