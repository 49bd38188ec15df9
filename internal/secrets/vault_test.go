// internal/secrets/vault_test.go
//
// Unit-tests for the Vault wrapper against a stub HTTP endpoint.
//
// Run: go test ./internal/secrets -v

package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// stubVault answers the token renew-self call with the given auth payload
// and returns the server.  Lookup paths are not served; these tests cover
// the renew loop and reference parsing only.
func stubVault(t *testing.T, authJSON string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/auth/token/renew-self") {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"auth": %s, "data": null}`, authJSON)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"errors": []string{"not stubbed"}})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, addr string) (*Client, <-chan string) {
	t.Helper()
	t.Setenv("VAULT_ADDR", addr)
	t.Setenv("VAULT_TOKEN", "test-token")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logged := make(chan string, 16)
	cli, err := New(ctx, func(format string, args ...any) {
		select {
		case logged <- fmt.Sprintf(format, args...):
		default:
		}
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cli, logged
}

// A renew-self response with "auth": null must park the loop, not crash
// the process.
func TestRenewLoopSurvivesNilAuth(t *testing.T) {
	ts := stubVault(t, "null")
	_, logged := newTestClient(t, ts.URL)

	select {
	case msg := <-logged:
		if !strings.Contains(msg, "not renewable") {
			t.Errorf("log = %q, want the not-renewable notice", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("renew loop produced no log line; likely wedged or crashed")
	}
}

func TestLookupRejectsMalformedRefs(t *testing.T) {
	ts := stubVault(t, "null")
	cli, _ := newTestClient(t, ts.URL)

	for _, ref := range []string{
		"",
		"no-key-separator",
		"#key-without-path",
		"path-without-key#",
		"mountonly#key", // no path below the mount
	} {
		if _, err := cli.Lookup(context.Background(), ref); err == nil {
			t.Errorf("Lookup(%q) succeeded, want error", ref)
		}
	}
}
