// internal/config/schema.go
//
// Declarative environment schemas.
//
// Context
// -------
// The schema is data, not code.  Each Field declares a name, a kind, a
// required flag, a default, and an optional constraint, and one generic
// routine in validate.go evaluates every field the same way.  Adding a
// variable means adding one line here, never a new code path.
//
// Two disjoint schemas exist.  The server schema covers everything the
// process needs, secrets included.  The public schema covers only the
// PUBLIC_-prefixed values that are safe to hand to a browser, and it is
// evaluated on its own so the private schema is never touched on a
// client-facing path.  No name may appear in both.
//
// Notes
// -----
//   - Constraints are go-playground/validator tag strings, evaluated per
//     value with Var in validate.go.
//   - Defaults are plain strings coerced through the same path as live
//     values; they are declared in code and must parse.
//   - Oxford commas, two spaces after periods.

package config

// Kind is the declared type of an environment variable.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindEnum
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindEnum:
		return "enum"
	case KindURL:
		return "url"
	default:
		return "string"
	}
}

// Field is one schema entry.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Default  string
	Enum     []string // allowed values, KindEnum only
	Check    string   // validator tag, applied to present values only
}

// Schema is an ordered list of fields.  Validation walks it in declaration
// order, so error output is stable.
type Schema []Field

// serverSchema is the private, server-only surface.
var serverSchema = Schema{
	{Name: "APP_ENV", Kind: KindEnum, Default: "development",
		Enum: []string{"development", "staging", "production"}},
	{Name: "LISTEN_ADDR", Kind: KindString, Default: ":8080", Check: "hostname_port"},
	{Name: "BASE_URL", Kind: KindURL, Required: true},
	{Name: "SECRET_KEY", Kind: KindString, Required: true, Check: "min=32"},
	{Name: "LOG_LEVEL", Kind: KindEnum, Default: "info",
		Enum: []string{"debug", "info", "warn", "error"}},
	{Name: "FORCE_HTTPS", Kind: KindBool, Default: "false"},
	{Name: "DATABASE_DSN", Kind: KindString},
	{Name: "DB_MAX_OPEN", Kind: KindInt, Default: "15", Check: "min=1"},
	{Name: "DB_MAX_IDLE", Kind: KindInt, Default: "5", Check: "min=1"},
	{Name: "REDIS_URL", Kind: KindURL},
	{Name: "CACHE_ENABLED", Kind: KindBool, Default: "true"},
	{Name: "STRIPE_SECRET_KEY", Kind: KindString, Check: "startswith=sk_"},
	{Name: "GEOIP_DB_PATH", Kind: KindString},
}

// publicSchema is the client-exposed surface.  Secrets never belong here.
var publicSchema = Schema{
	{Name: "PUBLIC_APP_NAME", Kind: KindString, Default: "Stencil"},
	{Name: "PUBLIC_BASE_URL", Kind: KindURL},
	{Name: "PUBLIC_SUPPORT_EMAIL", Kind: KindString, Check: "email"},
	{Name: "PUBLIC_STRIPE_KEY", Kind: KindString, Check: "startswith=pk_"},
}
