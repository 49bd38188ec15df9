// internal/requestinfo/requestinfo.go
//
// Per-request metadata: user-agent fingerprint and IP geolocation.
//
// Context
// -------
// The access-log middleware wants a device class and a country code per
// request without every handler re-parsing headers.  This package wraps
// the third-party parsers behind small structs, so the rest of the
// codebase never sees their enums.  The structs are inert; they hold no
// handles or large buffers and are safe to log or JSON-encode.
//
// Dependencies
//   - github.com/avct/uasurfer          (UA parsing)
//   - github.com/oschwald/geoip2-golang (MaxMind lookup)

package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"

	surfer "github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

// UA carries the parsed user-agent attributes used by the access log.
// Device is one of "Desktop", "Mobile", "Tablet", or "Other".
type UA struct {
	Browser string
	OS      string
	Device  string
	IsBot   bool
}

// Geo holds IP-based geolocation hints.  Best effort; fields stay empty
// when no GeoIP database is configured or the IP has no match.
type Geo struct {
	IP         net.IP
	CountryISO string
}

// Info is stored in the request context by the Enrich middleware.
type Info struct {
	UA  UA
	Geo Geo
}

// ParseUA converts a raw User-Agent header into UA.  After the first call
// the underlying library reuses internal buffers, so parsing allocates
// only on rarely-seen strings.
func ParseUA(raw string) UA {
	ua := surfer.Parse(raw)

	// The library's enum strings carry type prefixes ("BrowserChrome",
	// "OSMacOSX"); trim them to plain names.
	info := UA{
		Browser: strings.TrimPrefix(ua.Browser.Name.String(), "Browser"),
		OS:      strings.TrimPrefix(ua.OS.Name.String(), "OS"),
		IsBot:   ua.IsBot(),
	}

	switch ua.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}

	return info
}

//
// GeoIP reader (optional, config-driven)
//

var (
	geoMu     sync.RWMutex
	geoReader *geoip2.Reader
)

// InitGeo opens the GeoLite2 database at the validated GEOIP_DB_PATH.
// Call once from main when config.GeoIPEnabled(); lookups silently return
// empty results until then.
func InitGeo(dbPath string) error {
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoMu.Lock()
	geoReader = r
	geoMu.Unlock()
	return nil
}

// lookupGeo resolves the remote address to a country code, best effort.
func lookupGeo(remoteAddr string) Geo {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	g := Geo{IP: ip}

	geoMu.RLock()
	r := geoReader
	geoMu.RUnlock()
	if r == nil || ip == nil {
		return g
	}

	if rec, err := r.Country(ip); err == nil {
		g.CountryISO = rec.Country.IsoCode
	}
	return g
}

//
// Context carrier
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the *Info stored by Enrich, or nil if the
// middleware has not run.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

// Enrich parses the User-Agent header, resolves geolocation, and stores
// the result in the request context for downstream handlers and the
// access log.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &Info{
			UA:  ParseUA(r.UserAgent()),
			Geo: lookupGeo(remoteIP(r)),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, info)))
	})
}

// remoteIP prefers the first X-Forwarded-For hop when present, since the
// skeleton usually runs behind a TLS-terminating proxy.
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	}
	return r.RemoteAddr
}
