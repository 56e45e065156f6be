package schema

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one violated rule. Field is the json path of the offending
// value, e.g. contribution.fiat.amount or ballots[example.com].
type FieldError struct {
	Field string
	Rule  string
	Param string
	Value any
}

func (fe FieldError) String() string {
	if fe.Param != "" {
		return fmt.Sprintf("%s: failed %s=%s (value %v)", fe.Field, fe.Rule, fe.Param, fe.Value)
	}
	return fmt.Sprintf("%s: failed %s (value %v)", fe.Field, fe.Rule, fe.Value)
}

type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.String())
	}
	return "invalid transaction: " + strings.Join(parts, "; ")
}

// Fields returns the paths of all violated fields, in reporting order.
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		fields = append(fields, fe.Field)
	}
	return fields
}

func newValidationError(validationErrors validator.ValidationErrors) *ValidationError {
	ve := &ValidationError{Errors: make([]FieldError, 0, len(validationErrors))}
	for _, fe := range validationErrors {
		ve.Errors = append(ve.Errors, FieldError{
			Field: trimRootNamespace(fe.Namespace()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	return ve
}

// the validator prefixes every namespace with the root struct type name
func trimRootNamespace(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
