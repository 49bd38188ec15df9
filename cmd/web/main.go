// cmd/web/main.go
//
// Stencil – HTTP entry point.
//
// Boot order
// ----------
//
//  1. Load env files (jail-wide file → conf/.env fallback).
//
//  2. Install a bootstrap console logger so validation failures are
//     visible before the file logger exists.
//
//  3. Validate the environment.  Any field error halts startup here;
//     nothing below this line runs on a partially valid configuration.
//
//  4. Start the daily rotating file logger at the configured level.
//
//  5. Open the control-plane DB when DATABASE_DSN is set, open the GeoIP
//     database when GEOIP_DB_PATH is set.
//
//  6. Build the router: request enrichment → access log → security
//     headers → probe endpoints + /metrics, wrapped in ForceHTTPS.
//
//  7. Serve until SIGINT/SIGTERM, then drain connections.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/stencil/internal/config"
	"github.com/yanizio/stencil/internal/database"
	"github.com/yanizio/stencil/internal/health"
	"github.com/yanizio/stencil/internal/logger"
	"github.com/yanizio/stencil/internal/middleware"
	"github.com/yanizio/stencil/internal/requestinfo"
	"github.com/yanizio/stencil/internal/server"

	"github.com/jmoiron/sqlx"
)

const serverEnvPath = "/usr/local/etc/stencil/global.env"

// version is stamped by the release build via -ldflags.
var version = "dev"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
// Neither overrides a variable the operator already exported.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	// Bootstrap console logger.  Replaced by the file logger below once
	// validation has passed; until then zap.S() must not be a no-op or
	// field errors would vanish.
	boot, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(boot)

	//
	// ── 1.  Validate the environment, fail fast ────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		zap.S().Fatalw("invalid configuration, startup halted", "err", err)
	}
	if _, err := config.LoadPublic(); err != nil {
		zap.S().Fatalw("invalid public configuration, startup halted", "err", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, runningInTTY(), cfg.LogLevel)
	if err != nil {
		zap.S().Fatalw("start logger", "err", err)
	}

	//
	// ── 2.  Optional dependencies, presence decided by config ──────────
	//
	var db *sqlx.DB
	if cfg.DatabaseEnabled() {
		logOut.Infow("connecting to control-plane DB")
		db, err = database.OpenWithOptions(cfg.DatabaseDSN, cfg.DBMaxOpen, cfg.DBMaxIdle)
		if err != nil {
			logOut.Fatalw("connect control-plane DB", "err", err)
		}
		defer db.Close()
		logOut.Infow("control-plane DB online")
	}

	if cfg.GeoIPEnabled() {
		if err := requestinfo.InitGeo(cfg.GeoIPDBPath); err != nil {
			logOut.Fatalw("open GeoIP database", "path", cfg.GeoIPDBPath, "err", err)
		}
	}

	//
	// ── 3.  Router ─────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(requestinfo.Enrich)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Security)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", health.New(cfg, db, version).Routes())

	srv := server.New(cfg, middleware.ForceHTTPS(cfg.ForceHTTPS, r))

	//
	// ── 4.  Serve until signalled, then drain ──────────────────────────
	//
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logOut.Infow("listening", "addr", cfg.ListenAddr, "env", cfg.AppEnv, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logOut.Fatalw("http server", "err", err)
		}
	}()

	<-ctx.Done()
	logOut.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logOut.Warnw("shutdown incomplete", "err", err)
	}
}
