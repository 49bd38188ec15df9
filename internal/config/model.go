// internal/config/model.go
//
// Typed configuration model for Stencil.
//
// Context
// -------
// These structs are the only shape the rest of the codebase sees.  Loosely
// typed maps stop at the validation boundary; every consumer reads plain
// struct fields, and nothing downstream can write them.
//
// Derived fields are computed here, once, from resolved values.  They are
// ordinary struct fields on the outside but they have no environment
// variable of their own, so they can never disagree with their inputs.
//
// Notes
// -----
//   - Config is the server surface.  Public is the client surface and is
//     safe to serialize to a browser as-is.
//   - The Paths block is filled at runtime by the loader; it has no schema
//     entry.
//   - Oxford commas, two spaces after periods.

package config

// Paths is resolved at runtime, never from the environment.  The loader
// discovers Root (STENCIL_ROOT override or directory climb) so later code
// can build absolute file paths.
type Paths struct {
	Root string
}

// Config is the immutable server-side aggregate.  Constructed once by
// validation and cached in an atomic.Pointer for lock-free reads.
type Config struct {
	AppEnv     string
	ListenAddr string
	BaseURL    string
	SecretKey  string
	LogLevel   string
	ForceHTTPS bool

	DatabaseDSN string
	DBMaxOpen   int
	DBMaxIdle   int

	RedisURL        string
	StripeSecretKey string
	GeoIPDBPath     string

	// Derived.  CacheEnabled is forced false whenever REDIS_URL is absent,
	// regardless of the raw CACHE_ENABLED value; a cache with no backend
	// address cannot be on.  BillingEnabled follows the presence of the
	// Stripe secret.
	CacheEnabled   bool
	BillingEnabled bool

	Paths Paths
}

// IsProduction reports whether APP_ENV resolved to "production".
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// DatabaseEnabled reports whether a control-plane DSN was supplied.
func (c *Config) DatabaseEnabled() bool { return c.DatabaseDSN != "" }

// GeoIPEnabled reports whether a MaxMind database path was supplied.
func (c *Config) GeoIPEnabled() bool { return c.GeoIPDBPath != "" }

func newConfig(v values) *Config {
	c := &Config{
		AppEnv:          v.str("APP_ENV"),
		ListenAddr:      v.str("LISTEN_ADDR"),
		BaseURL:         v.str("BASE_URL"),
		SecretKey:       v.str("SECRET_KEY"),
		LogLevel:        v.str("LOG_LEVEL"),
		ForceHTTPS:      v.boolean("FORCE_HTTPS"),
		DatabaseDSN:     v.str("DATABASE_DSN"),
		DBMaxOpen:       v.integer("DB_MAX_OPEN"),
		DBMaxIdle:       v.integer("DB_MAX_IDLE"),
		RedisURL:        v.str("REDIS_URL"),
		StripeSecretKey: v.str("STRIPE_SECRET_KEY"),
		GeoIPDBPath:     v.str("GEOIP_DB_PATH"),
	}
	c.CacheEnabled = v.boolean("CACHE_ENABLED") && c.RedisURL != ""
	c.BillingEnabled = c.StripeSecretKey != ""
	return c
}

// Public is the client-exposed aggregate.  It is serialized verbatim by
// the /api/config handler, so nothing secret may ever be added here.
type Public struct {
	AppName      string `json:"app_name"`
	BaseURL      string `json:"base_url,omitempty"`
	SupportEmail string `json:"support_email,omitempty"`
	StripeKey    string `json:"stripe_key,omitempty"`
}

func newPublic(v values) *Public {
	return &Public{
		AppName:      v.str("PUBLIC_APP_NAME"),
		BaseURL:      v.str("PUBLIC_BASE_URL"),
		SupportEmail: v.str("PUBLIC_SUPPORT_EMAIL"),
		StripeKey:    v.str("PUBLIC_STRIPE_KEY"),
	}
}
