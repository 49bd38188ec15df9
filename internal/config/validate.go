// internal/config/validate.go
//
// Generic schema evaluation.
//
// Context
// -------
// One routine walks a Schema against a raw key/value snapshot and produces
// either a complete set of resolved values or the complete ordered list of
// field errors.  It is a pure function of its inputs: no environment reads,
// no logging, no I/O.  The loader owns the impure parts (snapshotting the
// process environment, Vault resolution, caching); tests call this directly
// with hand-built maps.
//
// Per field, in declaration order:
//
//  1. Present values are coerced to the declared kind.  Coercion failure
//     records InvalidFormat with the offending value.
//  2. Absent required fields with no default record MissingRequired.
//  3. Absent optional fields resolve to the default, or the kind's zero
//     value.  Defaults bypass constraints; they are declared in code.
//  4. Present values that coerce are then run through the field's
//     validator tag.  Tag failure records ConstraintViolation.
//
// An empty string counts as absent.  Exporting FOO= is indistinguishable
// from leaving FOO unset, which matches how the rest of the stack treats
// the environment.

package config

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// vld evaluates constraint tags.  Same package-level singleton the
// struct-validation idiom uses, but applied per value with Var.
var vld = validator.New()

// values holds resolved, typed results keyed by field name.  It never
// leaves this package; the typed Config and Public structs are built from
// it immediately after validation.
type values map[string]any

func (v values) str(name string) string { s, _ := v[name].(string); return s }
func (v values) boolean(name string) bool {
	b, _ := v[name].(bool)
	return b
}
func (v values) integer(name string) int {
	i, _ := v[name].(int)
	return i
}

// evaluate runs one schema against one raw snapshot and collects every
// field error.  Either the values are complete or the error list is
// non-empty, never both.
func evaluate(raw map[string]string, schema Schema) (values, Errors) {
	vals := make(values, len(schema))
	var errs Errors

	for _, f := range schema {
		rawVal, ok := raw[f.Name]
		if !ok || rawVal == "" {
			if f.Required && f.Default == "" {
				errs = append(errs, FieldError{Field: f.Name, Reason: MissingRequired,
					Detail: f.Kind.String()})
				continue
			}
			// Defaults are declared in code and must parse.
			v, _ := coerce(f, f.Default)
			vals[f.Name] = v
			continue
		}

		v, cerr := coerce(f, rawVal)
		if cerr != "" {
			errs = append(errs, FieldError{Field: f.Name, Reason: InvalidFormat,
				Value: rawVal, Detail: cerr})
			continue
		}

		if f.Check != "" {
			if err := vld.Var(v, f.Check); err != nil {
				// No Value here.  Constraint failures often involve secret
				// material, and the tag plus field name is enough to fix.
				errs = append(errs, FieldError{Field: f.Name, Reason: ConstraintViolation,
					Detail: f.Check})
				continue
			}
		}

		vals[f.Name] = v
	}

	if len(errs) != 0 {
		return nil, errs
	}
	return vals, nil
}

// truthy and falsy are the accepted boolean spellings, case-insensitive.
var truthy = map[string]bool{"1": true, "t": true, "true": true, "yes": true, "on": true}
var falsy = map[string]bool{"0": true, "f": true, "false": true, "no": true, "off": true}

// coerce converts a raw string to the field's kind.  Empty raw means the
// kind's zero value.  The second return is a short description of what was
// expected, empty on success.
func coerce(f Field, raw string) (any, string) {
	if raw == "" {
		switch f.Kind {
		case KindBool:
			return false, ""
		case KindInt:
			return 0, ""
		default:
			return "", ""
		}
	}

	switch f.Kind {
	case KindBool:
		s := strings.ToLower(raw)
		if truthy[s] {
			return true, ""
		}
		if falsy[s] {
			return false, ""
		}
		return nil, "boolean"

	case KindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, "integer"
		}
		return n, ""

	case KindEnum:
		for _, allowed := range f.Enum {
			if raw == allowed {
				return raw, ""
			}
		}
		return nil, "one of " + strings.Join(f.Enum, "|")

	case KindURL:
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return nil, "absolute url"
		}
		return raw, ""

	default:
		return raw, ""
	}
}

// ValidateServer evaluates the server schema against raw and builds the
// typed Config, derived fields included.  Pure; the caller decides what to
// do with the error list.
func ValidateServer(raw map[string]string) (*Config, Errors) {
	vals, errs := evaluate(raw, serverSchema)
	if errs != nil {
		return nil, errs
	}
	return newConfig(vals), nil
}

// ValidatePublic evaluates only the public schema.  Private fields are
// never read, so a snapshot missing every server key still validates.
func ValidatePublic(raw map[string]string) (*Public, Errors) {
	vals, errs := evaluate(raw, publicSchema)
	if errs != nil {
		return nil, errs
	}
	return newPublic(vals), nil
}
