// internal/config/loader.go
//
// Snapshot, secret resolution, and the validate-once cache.
//
/*
Context
--------
`Load()` builds one immutable `Config` from three layers (highest
precedence last):

  1. Optional `conf/defaults.yaml` — flat YAML keyed by the environment
     variable names themselves.
  2. Optional `conf/.env` — dotenv values, applied only where the process
     environment has no value (godotenv never overrides a set variable).
  3. The process environment.

The merged snapshot is a plain map[string]string.  Any server-schema value
of the form `vault:<mount/path>#<key>` is swapped for the Vault KV-v2
lookup before validation, so the validator itself never performs I/O and
only ever sees plain strings.

Validation runs through the pure routines in validate.go.  On success the
typed aggregate is cached in an `atomic.Pointer` for lock-free reads;
`Get()` lazily triggers the first `Load()` behind a singleflight group so
concurrent first callers converge on a single validation pass.  `Reset()`
drops the cached instances and exists for test harnesses only; production
code never calls it.

Failure policy
--------------
Every field error from one pass is logged as its own structured event.
The offending raw value is included for format errors only; missing and
constraint failures name the field and the expectation, never the value,
so secrets stay out of log files.  The caller (cmd/web) halts startup on
any non-empty error set.

Notes
-----
  • `rootDir()` honors STENCIL_ROOT, then climbs the cwd tree until a
    `conf/` directory appears; `go run ./cmd/web` works from any
    sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/stencil/internal/metrics"
	"github.com/yanizio/stencil/internal/secrets"
)

var (
	current       atomic.Pointer[Config]
	currentPublic atomic.Pointer[Public]
	sfg           singleflight.Group
)

// vaultRefPrefix marks a snapshot value that must be resolved through the
// Vault client before validation, e.g. vault:secret/stencil#stripe_key.
const vaultRefPrefix = "vault:"

// Resolver looks up an external secret reference of the form
// "mount/path#key".  Satisfied by *secrets.Client; tests swap in a fake
// through resolverFactory.
type Resolver interface {
	Lookup(ctx context.Context, ref string) (string, error)
}

var resolverFactory = func(ctx context.Context) (Resolver, error) {
	return secrets.New(ctx, zap.S().Infof)
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves STENCIL_ROOT or climbs directories until a conf/
// directory is found.  Falls back to the executable heuristic for the
// production layout (<root>/bin/web).
func rootDir() string {
	if r := os.Getenv("STENCIL_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if fi, err := os.Stat(filepath.Join(dir, "conf")); err == nil && fi.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── snapshot ─────────────────────────────────*/

// snapshot merges the three input layers into one flat map.  All three
// layers share the environment-variable namespace, so a defaults.yaml key
// is simply the variable name.
func snapshot(root string) (map[string]string, error) {
	k := koanf.New(".")

	defaults := filepath.Join(root, "conf", "defaults.yaml")
	if _, err := os.Stat(defaults); err == nil {
		if err := k.Load(file.Provider(defaults), kyaml.Parser()); err != nil {
			zap.S().Errorw("config defaults load failed", "file", defaults, "err", err)
			return nil, fmt.Errorf("config: load %s: %w", defaults, err)
		}
		zap.S().Debugw("config defaults loaded", "file", defaults)
	}

	// Dotenv fills gaps in the process environment only; a variable the
	// operator exported always wins.
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("config: env overlay: %w", err)
	}

	all := k.All()
	raw := make(map[string]string, len(all))
	for key, v := range all {
		raw[key] = fmt.Sprint(v)
	}
	return raw, nil
}

// resolveRefs swaps vault: references in the server fields for their
// looked-up values.  The snapshot map is mutated in place.
func resolveRefs(ctx context.Context, raw map[string]string) error {
	var pending []string
	for _, f := range serverSchema {
		if strings.HasPrefix(raw[f.Name], vaultRefPrefix) {
			pending = append(pending, f.Name)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	if os.Getenv("VAULT_ADDR") == "" {
		return fmt.Errorf("config: %s holds a vault reference but VAULT_ADDR is not set",
			pending[0])
	}

	cli, err := resolverFactory(ctx)
	if err != nil {
		return fmt.Errorf("config: vault client: %w", err)
	}

	for _, name := range pending {
		val, err := cli.Lookup(ctx, strings.TrimPrefix(raw[name], vaultRefPrefix))
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", name, err)
		}
		raw[name] = val
	}
	return nil
}

/*─────────────────────────────── loaders ──────────────────────────────────*/

// Load validates the live environment against the server schema, caches
// the result, and returns it.  Every field error is logged before the
// aggregate is returned.
func Load() (*Config, error) {
	root := rootDir()
	raw, err := snapshot(root)
	if err != nil {
		metrics.ConfigLoadErrorsTotal.Inc()
		return nil, err
	}

	if err := resolveRefs(context.Background(), raw); err != nil {
		metrics.ConfigLoadErrorsTotal.Inc()
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	cfg, errs := ValidateServer(raw)
	if errs != nil {
		metrics.ConfigLoadErrorsTotal.Inc()
		metrics.ConfigFieldErrorsTotal.Add(float64(len(errs)))
		for _, fe := range errs {
			kv := []any{"field", fe.Field, "reason", string(fe.Reason), "expected", fe.Detail}
			if fe.Reason == InvalidFormat {
				kv = append(kv, "value", fe.Value)
			}
			zap.S().Errorw("config field invalid", kv...)
		}
		return nil, errs
	}

	cfg.Paths.Root = root

	// The derived cache flag silently overrides a literal CACHE_ENABLED.
	// Surface the auto-correct so operators are not left guessing.
	if truthy[strings.ToLower(raw["CACHE_ENABLED"])] && !cfg.CacheEnabled {
		zap.S().Warnw("cache force-disabled", "reason", "REDIS_URL not set")
	}

	current.Store(cfg)
	metrics.ConfigLoadTotal.Inc()
	zap.S().Infow("config loaded",
		"env", cfg.AppEnv,
		"listen_addr", cfg.ListenAddr,
		"cache", cfg.CacheEnabled,
		"billing", cfg.BillingEnabled,
		"root", cfg.Paths.Root,
	)
	return cfg, nil
}

// LoadPublic validates the public schema only.  The server schema is never
// evaluated on this path, so a snapshot with every private field missing
// still succeeds, and no private value can leak into the result.
func LoadPublic() (*Public, error) {
	raw, err := snapshot(rootDir())
	if err != nil {
		metrics.ConfigLoadErrorsTotal.Inc()
		return nil, err
	}

	pub, errs := ValidatePublic(raw)
	if errs != nil {
		metrics.ConfigLoadErrorsTotal.Inc()
		metrics.ConfigFieldErrorsTotal.Add(float64(len(errs)))
		for _, fe := range errs {
			zap.S().Errorw("public config field invalid",
				"field", fe.Field, "reason", string(fe.Reason), "expected", fe.Detail)
		}
		return nil, errs
	}

	currentPublic.Store(pub)
	return pub, nil
}

/*──────────────────────────── cached access ───────────────────────────────*/

// Get returns the cached Config, validating the live environment on first
// use.  Concurrent first callers converge on one validation pass; later
// environment mutations are invisible until an explicit Reset.
func Get() (*Config, error) {
	if c := current.Load(); c != nil {
		return c, nil
	}
	v, err, _ := sfg.Do("server", func() (any, error) {
		// Double-check after the singleflight barrier.
		if c := current.Load(); c != nil {
			return c, nil
		}
		return Load()
	})
	if err != nil {
		return nil, err
	}
	return v.(*Config), nil
}

// GetPublic is Get for the client-exposed surface.
func GetPublic() (*Public, error) {
	if p := currentPublic.Load(); p != nil {
		return p, nil
	}
	v, err, _ := sfg.Do("public", func() (any, error) {
		if p := currentPublic.Load(); p != nil {
			return p, nil
		}
		return LoadPublic()
	})
	if err != nil {
		return nil, err
	}
	return v.(*Public), nil
}

// Reset discards both cached instances so the next Get revalidates.  Test
// harness use only; production code paths never call it.
func Reset() {
	current.Store(nil)
	currentPublic.Store(nil)
}
