// internal/middleware/accesslog.go
//
// Structured access log.
//
// One zap event per request: method, path, status, duration, device
// class, and country when GeoIP is configured.  The same wrapper feeds
// the http_requests_total counter so the log and the metric can never
// disagree about what was served.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/stencil/internal/metrics"
	"github.com/yanizio/stencil/internal/requestinfo"
)

// AccessLog wraps next with per-request structured logging.  Run it inside
// requestinfo.Enrich so UA and geo fields are populated.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, statusClass(status)).Inc()

		kv := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"dur_ms", time.Since(start).Milliseconds(),
		}
		if info := requestinfo.FromContext(r.Context()); info != nil {
			kv = append(kv, "device", info.UA.Device, "bot", info.UA.IsBot)
			if info.Geo.CountryISO != "" {
				kv = append(kv, "country", info.Geo.CountryISO)
			}
		}
		zap.S().Infow("request", kv...)
	})
}

// statusClass buckets a status code into "2xx", "3xx", and so on, keeping
// the metric's cardinality flat.
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
