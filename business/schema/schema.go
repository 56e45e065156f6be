// Package schema validates contribution transactions against the shape and
// invariants the ledger enforces in production.
//
// Field rules are declared as struct tags on the entities types. Cross-field
// references (satoshis, votes) are checked in a struct level pass that runs after
// every field rule.
package schema

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/qubic/go-ledger-simulator/business/hostname"
	"github.com/qubic/go-ledger-simulator/entities"
)

const (
	idByteLength = 32
	maxDecimals  = 2
)

var (
	currencyCodeRegex = regexp.MustCompile(`^[A-Z]+$`)
	uuidRegex         = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

type Result struct {
	Err   error
	Value entities.Transaction
}

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	// registration only fails on empty tags or nil functions
	mustRegister(v, "uuidshaped", isUUIDShaped)
	mustRegister(v, "base64len32", isBase64Of32Bytes)
	mustRegister(v, "hexlen32", isHexOf32Bytes)
	mustRegister(v, "decimals2", hasAtMostTwoDecimals)
	mustRegister(v, "currencycode", isCurrencyCode)
	mustRegister(v, "publisherhost", isPublisherHost)

	v.RegisterStructValidation(validateReferences, entities.Transaction{})

	return &Validator{validate: v}
}

// Validate checks every field rule and the cross-field references. It never mutates
// the transaction, the returned value is the transaction as passed in.
func (sv *Validator) Validate(tx entities.Transaction) Result {
	err := sv.validate.Struct(tx)
	if err == nil {
		return Result{Value: tx}
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return Result{Err: errors.Wrap(err, "validating transaction"), Value: tx}
	}

	return Result{Err: newValidationError(validationErrors), Value: tx}
}

// ValidateStrict runs Validate and additionally checks that the surveyor ids match
// the vote count and that the ballots add up to the votes.
func (sv *Validator) ValidateStrict(tx entities.Transaction) Result {
	res := sv.Validate(tx)

	var invariantErrors []FieldError
	if len(tx.SurveyorIDs) != tx.Count {
		invariantErrors = append(invariantErrors, FieldError{Field: "surveyorIds", Rule: "len", Param: "count", Value: len(tx.SurveyorIDs)})
	}
	if sum := SumBallots(tx.Ballots); sum != tx.Votes {
		invariantErrors = append(invariantErrors, FieldError{Field: "ballots", Rule: "sum", Param: "votes", Value: sum})
	}
	if len(invariantErrors) == 0 {
		return res
	}

	var ve *ValidationError
	if errors.As(res.Err, &ve) {
		ve.Errors = append(ve.Errors, invariantErrors...)
		return res
	}
	if res.Err != nil {
		return res
	}
	return Result{Err: &ValidationError{Errors: invariantErrors}, Value: tx}
}

func SumBallots(ballots map[string]int) int {
	var sum int
	for _, votes := range ballots {
		sum += votes
	}
	return sum
}

func validateReferences(sl validator.StructLevel) {
	tx := sl.Current().Interface().(entities.Transaction)

	if tx.Satoshis != tx.Contribution.Satoshis {
		sl.ReportError(tx.Satoshis, "satoshis", "Satoshis", "ref", "contribution.satoshis")
	}
	if tx.Votes != tx.Count {
		sl.ReportError(tx.Votes, "votes", "Votes", "ref", "count")
	}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %s validation: %v", tag, err))
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func isUUIDShaped(fl validator.FieldLevel) bool {
	return uuidRegex.MatchString(fl.Field().String())
}

func isBase64Of32Bytes(fl validator.FieldLevel) bool {
	decoded, err := base64.StdEncoding.DecodeString(fl.Field().String())
	return err == nil && len(decoded) == idByteLength
}

func isHexOf32Bytes(fl validator.FieldLevel) bool {
	decoded, err := hex.DecodeString(fl.Field().String())
	return err == nil && len(decoded) == idByteLength
}

// hasAtMostTwoDecimals counts the fraction digits of the shortest decimal
// representation that round trips to the same float.
func hasAtMostTwoDecimals(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		v := f.Float()
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		formatted := strconv.FormatFloat(v, 'f', -1, f.Type().Bits())
		if _, fraction, ok := strings.Cut(formatted, "."); ok {
			return len(fraction) <= maxDecimals
		}
		return true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func isCurrencyCode(fl validator.FieldLevel) bool {
	return currencyCodeRegex.MatchString(fl.Field().String())
}

func isPublisherHost(fl validator.FieldLevel) bool {
	return hostname.Pattern.MatchString(fl.Field().String())
}
