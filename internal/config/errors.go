// internal/config/errors.go
//
// Field-level error taxonomy for environment validation.
//
// Context
// -------
// Validation never stops at the first bad field.  Every schema field is
// checked, and the full ordered list of failures is returned in one pass so
// an operator fixes the environment once instead of replaying a
// fix-one-rerun-repeat loop.  The aggregate carries structured data (field
// name, reason, offending value) rather than a flattened string, because
// cmd/web logs each failure as its own structured event.

package config

import (
	"fmt"
	"strings"
)

// Reason classifies why a single field failed validation.
type Reason string

const (
	// MissingRequired means a required field has no value and no default.
	MissingRequired Reason = "missing_required"

	// InvalidFormat means a present value could not be coerced to the
	// field's declared kind.
	InvalidFormat Reason = "invalid_format"

	// ConstraintViolation means a coerced value failed a declared
	// constraint predicate (length, prefix, enum membership, and so on).
	ConstraintViolation Reason = "constraint_violation"
)

// FieldError describes one failed field.  Value holds the offending raw
// string for format failures only; constraint failures omit it so secret
// material never reaches a log line.  Detail names the expected kind or the
// failed constraint tag.
type FieldError struct {
	Field  string
	Reason Reason
	Value  string
	Detail string
}

func (e FieldError) Error() string {
	switch e.Reason {
	case MissingRequired:
		return fmt.Sprintf("%s: required and not set", e.Field)
	case InvalidFormat:
		return fmt.Sprintf("%s: %q is not a valid %s", e.Field, e.Value, e.Detail)
	default:
		return fmt.Sprintf("%s: violates constraint %q", e.Field, e.Detail)
	}
}

// Errors is the ordered aggregate of field failures from one validation
// pass.  Order follows schema declaration order, so output is stable for a
// given input.
type Errors []FieldError

func (es Errors) Error() string {
	if len(es) == 0 {
		return "config: no errors"
	}
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return "config: " + strings.Join(parts, "; ")
}

// ErrOrNil converts an empty aggregate to a nil error so callers can write
// the usual `if err != nil` check.
func (es Errors) ErrOrNil() error {
	if len(es) == 0 {
		return nil
	}
	return es
}
