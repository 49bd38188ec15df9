// internal/health/health.go
//
// Liveness, readiness, and public-config endpoints.
//
// Context
// -------
// Every deployment of the skeleton is probed the same way:
//
//   • GET /healthz     – liveness.  Always 200 once the process is up;
//     validation already happened or the process would not be running.
//   • GET /readyz      – readiness.  Runs one probe per configured
//     dependency and returns 503 with per-check detail when any fails.
//     Dependencies the config disabled report "skipped", not failure.
//   • GET /api/config  – the validated public surface as JSON.  Only the
//     public schema ever feeds this payload, so a secret cannot leak here
//     even by mistake.
//
// Notes
// -----
//   - Probes are bounded; a wedged dependency turns into a failed check,
//     never a hung endpoint.
//   - Oxford commas, two spaces after periods.

package health

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/stencil/internal/config"
	"github.com/yanizio/stencil/internal/database"
	"github.com/yanizio/stencil/internal/metrics"
)

// Checker owns the probe endpoints.  db may be nil when DATABASE_DSN is
// not configured.
type Checker struct {
	cfg     *config.Config
	db      *sqlx.DB
	version string
}

// New constructs a Checker for the validated config.
func New(cfg *config.Config, db *sqlx.DB, version string) *Checker {
	return &Checker{cfg: cfg, db: db, version: version}
}

// Routes returns a router with the probe endpoints mounted at the root.
func (h *Checker) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Get("/api/config", h.publicConfig)
	return r
}

type check struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"` // ok | failed | skipped
	Detail  string `json:"detail,omitempty"`
}

func (h *Checker) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"env":     h.cfg.AppEnv,
		"version": h.version,
	})
}

func (h *Checker) readyz(w http.ResponseWriter, r *http.Request) {
	checks := []check{
		h.checkDB(r),
		h.checkCache(),
	}

	status := http.StatusOK
	overall := "ok"
	for _, c := range checks {
		metrics.ReadinessChecksTotal.WithLabelValues(c.Name, c.Outcome).Inc()
		if c.Outcome == "failed" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
	}

	writeJSON(w, status, map[string]any{
		"status": overall,
		"checks": checks,
	})
}

func (h *Checker) checkDB(r *http.Request) check {
	if !h.cfg.DatabaseEnabled() || h.db == nil {
		return check{Name: "database", Outcome: "skipped"}
	}
	if err := database.Ping(r.Context(), h.db); err != nil {
		zap.S().Warnw("readiness: database ping failed", "err", err)
		return check{Name: "database", Outcome: "failed", Detail: err.Error()}
	}
	return check{Name: "database", Outcome: "ok"}
}

// checkCache dials the Redis address.  The skeleton carries no Redis
// client; reachability is all readiness needs to assert.
func (h *Checker) checkCache() check {
	if !h.cfg.CacheEnabled {
		return check{Name: "cache", Outcome: "skipped"}
	}

	u, err := url.Parse(h.cfg.RedisURL)
	if err != nil {
		return check{Name: "cache", Outcome: "failed", Detail: "unparseable REDIS_URL"}
	}
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "6379")
	}

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		zap.S().Warnw("readiness: cache dial failed", "addr", addr, "err", err)
		return check{Name: "cache", Outcome: "failed", Detail: err.Error()}
	}
	_ = conn.Close()
	return check{Name: "cache", Outcome: "ok"}
}

func (h *Checker) publicConfig(w http.ResponseWriter, r *http.Request) {
	pub, err := config.GetPublic()
	if err != nil {
		zap.S().Errorw("public config unavailable", "err", err)
		writeJSON(w, http.StatusInternalServerError,
			map[string]string{"error": "configuration unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, pub)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
