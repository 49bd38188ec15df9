// internal/middleware/middleware_test.go
//
// Unit-tests for the HTTP wrappers.
//
// Run: go test ./internal/middleware -v

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yanizio/stencil/internal/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	Security(okHandler()).ServeHTTP(rr, req)

	for _, key := range []string{
		"Strict-Transport-Security",
		"Content-Security-Policy",
		"X-Frame-Options",
		"X-Content-Type-Options",
		"Referrer-Policy",
		"Permissions-Policy",
	} {
		if rr.Header().Get(key) == "" {
			t.Errorf("%s header missing", key)
		}
		if len(rr.Header().Values(key)) != 1 {
			t.Errorf("%s header set more than once", key)
		}
	}
}

func TestSecurityHandlerCanOverride(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	Security(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rr.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Errorf("handler override lost: %q", got)
	}
}

func TestForceHTTPS_Redirects(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://app.example.com/signup?plan=pro", nil)
	rr := httptest.NewRecorder()

	ForceHTTPS(true, okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusPermanentRedirect {
		t.Fatalf("status = %d, want 308", rr.Code)
	}
	want := "https://app.example.com/signup?plan=pro"
	if got := rr.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func TestForceHTTPS_SkipsLocalhost(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil)
	rr := httptest.NewRecorder()

	ForceHTTPS(true, okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 passthrough for localhost", rr.Code)
	}
}

func TestForceHTTPS_Disabled(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://app.example.com/", nil)
	rr := httptest.NewRecorder()

	ForceHTTPS(false, okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when the flag is off", rr.Code)
	}
}

func TestAccessLogPassthrough(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "4xx")
	before := testutil.ToFloat64(counter)

	rr := httptest.NewRecorder()
	AccessLog(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418 passthrough", rr.Code)
	}
	if rr.Body.String() != "short and stout" {
		t.Errorf("body mangled: %q", rr.Body.String())
	}
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("http_requests_total{GET,4xx} = %v, want %v", got, before+1)
	}
}
