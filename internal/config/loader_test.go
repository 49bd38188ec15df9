// internal/config/loader_test.go
//
// Tests for the impure half of the package: snapshot layering, secret
// reference resolution, and the validate-once cache.
//
// Context
// -------
// These tests touch the real process environment through t.Setenv and
// force reconstruction with Reset, which exists exactly for this.  Each
// test leaves the cache empty behind it.

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// setBaseline exports the minimal valid environment and clears any cached
// instance, restoring both afterwards.
func setBaseline(t *testing.T) {
	t.Helper()
	t.Setenv("BASE_URL", "https://app.example.com")
	t.Setenv("SECRET_KEY", strings.Repeat("k", 32))
	t.Setenv("STENCIL_ROOT", t.TempDir()) // keep rootDir away from the repo tree
	Reset()
	t.Cleanup(Reset)
}

func TestGetCachesAcrossEnvMutation(t *testing.T) {
	setBaseline(t)
	t.Setenv("APP_ENV", "staging")

	first, err := Get()
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if first.AppEnv != "staging" {
		t.Fatalf("AppEnv = %q, want staging", first.AppEnv)
	}

	// Mutating the environment must be invisible until an explicit Reset.
	t.Setenv("APP_ENV", "production")
	second, err := Get()
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if second != first {
		t.Error("Get returned a new instance without Reset")
	}
	if second.AppEnv != "staging" {
		t.Errorf("cached AppEnv = %q, want staging", second.AppEnv)
	}

	Reset()
	third, err := Get()
	if err != nil {
		t.Fatalf("Get after Reset: %v", err)
	}
	if third.AppEnv != "production" {
		t.Errorf("AppEnv after Reset = %q, want production", third.AppEnv)
	}
}

func TestGetConvergesConcurrently(t *testing.T) {
	setBaseline(t)

	const callers = 16
	var wg sync.WaitGroup
	got := make([]*Config, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := Get()
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			got[i] = c
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if got[i] != got[0] {
			t.Fatalf("caller %d received a different instance", i)
		}
	}
}

func TestLoadFailsFastOnInvalidEnv(t *testing.T) {
	setBaseline(t)
	t.Setenv("SECRET_KEY", "short")

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded with an undersized SECRET_KEY")
	}

	var errs Errors
	_, err := Load()
	if !errors.As(err, &errs) {
		t.Fatalf("error is %T, want config.Errors", err)
	}
	if len(errs) != 1 || errs[0].Field != "SECRET_KEY" {
		t.Fatalf("errs = %v, want one SECRET_KEY failure", errs)
	}
}

func TestSnapshotLayering(t *testing.T) {
	setBaseline(t)

	root := t.TempDir()
	confDir := filepath.Join(root, "conf")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "LISTEN_ADDR: \":9999\"\nAPP_ENV: staging\n"
	if err := os.WriteFile(filepath.Join(confDir, "defaults.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STENCIL_ROOT", root)

	// File value fills the gap when the env is silent.
	os.Unsetenv("LISTEN_ADDR")
	t.Setenv("APP_ENV", "production")

	raw, err := snapshot(root)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if raw["LISTEN_ADDR"] != ":9999" {
		t.Errorf("LISTEN_ADDR = %q, want file value :9999", raw["LISTEN_ADDR"])
	}
	// An exported variable always beats the file layer.
	if raw["APP_ENV"] != "production" {
		t.Errorf("APP_ENV = %q, want env value production", raw["APP_ENV"])
	}
}

func TestDotenvNeverOverridesEnv(t *testing.T) {
	setBaseline(t)

	root := t.TempDir()
	confDir := filepath.Join(root, "conf")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(confDir, ".env"),
		[]byte("LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STENCIL_ROOT", root)

	// godotenv writes into the process environment; scrub afterwards so
	// later tests see a clean slate.
	t.Setenv("LOG_LEVEL", "warn")
	t.Cleanup(func() { os.Unsetenv("LOG_LEVEL") })

	raw, err := snapshot(root)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if raw["LOG_LEVEL"] != "warn" {
		t.Errorf("LOG_LEVEL = %q; dotenv overrode an exported variable", raw["LOG_LEVEL"])
	}
}

// fakeResolver satisfies Resolver with a canned lookup table.
type fakeResolver struct {
	table map[string]string
}

func (f *fakeResolver) Lookup(_ context.Context, ref string) (string, error) {
	v, ok := f.table[ref]
	if !ok {
		return "", errors.New("no such secret")
	}
	return v, nil
}

func TestResolveRefs(t *testing.T) {
	setBaseline(t)
	t.Setenv("VAULT_ADDR", "https://vault.example.com")

	orig := resolverFactory
	resolverFactory = func(context.Context) (Resolver, error) {
		return &fakeResolver{table: map[string]string{
			"secret/stencil#stripe": "sk_live_from_vault",
		}}, nil
	}
	t.Cleanup(func() { resolverFactory = orig })

	t.Setenv("STRIPE_SECRET_KEY", "vault:secret/stencil#stripe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StripeSecretKey != "sk_live_from_vault" {
		t.Errorf("StripeSecretKey = %q, want resolved vault value", cfg.StripeSecretKey)
	}
	if !cfg.BillingEnabled {
		t.Error("BillingEnabled = false after vault resolution")
	}
}

func TestResolveRefsRequiresVaultAddr(t *testing.T) {
	setBaseline(t)
	t.Setenv("VAULT_ADDR", "") // register restore, then clear outright
	os.Unsetenv("VAULT_ADDR")
	t.Setenv("STRIPE_SECRET_KEY", "vault:secret/stencil#stripe")

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded with a vault reference and no VAULT_ADDR")
	}
}
