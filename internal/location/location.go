// Package location works out which host-account installation ("location")
// the widget is running under. The host never hands the id over through a
// single reliable channel, so a Resolver walks an ordered list of strategies
// and remembers the last good answer in a persisted cache.
package location

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
)

const (
	// MinLength is the shortest identifier the host ever issues.
	MinLength = 10

	// CacheKey is the fixed key the last resolved id is stored under.
	CacheKey = "phonelink.locationId"

	templateMarker = "{{"
)

// ErrUnresolved is returned when no strategy produced a usable identifier.
var ErrUnresolved = errors.New("location: identifier unresolved")

// queryKeys are checked in order on any URL query string.
var queryKeys = []string{"locationId", "location_id", "location"}

var (
	locationPathPattern = regexp.MustCompile(`/location/([^/?#]+)`)
	idTokenPattern      = regexp.MustCompile(`[A-Za-z0-9]{10,}`)
)

// Valid reports whether id looks like a real, expanded location identifier.
func Valid(id string) bool {
	id = strings.TrimSpace(id)
	if len(id) < MinLength {
		return false
	}
	return !strings.Contains(id, templateMarker)
}

// Host is a snapshot of the embedding context the widget was launched in.
type Host struct {
	PageURL    string
	TopURL     string
	Referrer   string
	WindowName string
}

// Embedded reports whether the widget runs inside another frame.
func (h Host) Embedded() bool {
	top := strings.TrimSpace(h.TopURL)
	return top != "" && top != strings.TrimSpace(h.PageURL)
}

// SameOrigin reports whether page and top frame share scheme and host, the
// only case in which the top frame may be inspected.
func (h Host) SameOrigin() bool {
	page, err := url.Parse(strings.TrimSpace(h.PageURL))
	if err != nil || page.Host == "" {
		return false
	}
	top, err := url.Parse(strings.TrimSpace(h.TopURL))
	if err != nil || top.Host == "" {
		return false
	}
	return strings.EqualFold(page.Scheme, top.Scheme) && strings.EqualFold(page.Host, top.Host)
}

// Result is a successfully resolved identifier and the strategy that found it.
type Result struct {
	ID     string
	Source string
}

// Store persists the last resolved identifier across runs.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Requester asks the embedding parent to send the identifier. Replies
// arrive asynchronously and are fed back through Resolver.Remember.
type Requester interface {
	RequestLocation(ctx context.Context) error
}

// Logger records resolver diagnostics. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

func fromQuery(raw string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	query := parsed.Query()
	for _, key := range queryKeys {
		if value := strings.TrimSpace(query.Get(key)); value != "" && Valid(value) {
			return value, true
		}
	}
	return "", false
}

func fromPath(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	path := raw
	if parsed, err := url.Parse(raw); err == nil && parsed.Path != "" {
		path = parsed.Path
	}
	match := locationPathPattern.FindStringSubmatch(path)
	if len(match) < 2 {
		return "", false
	}
	id, err := url.PathUnescape(match[1])
	if err != nil {
		return "", false
	}
	return id, id != ""
}
