package location

import (
	"net/http"
	"strings"
	"sync"
)

// Interceptor watches outbound request URLs for a locationId query
// parameter. It never changes the request or the response; observation is
// its only side effect. Used directly it is an http.RoundTripper over next;
// Install wraps any number of clients, each keeping its own transport.
type Interceptor struct {
	next http.RoundTripper

	mu       sync.RWMutex
	captured string
}

// NewInterceptor returns an interceptor delegating to next, or to
// http.DefaultTransport when next is nil.
func NewInterceptor(next http.RoundTripper) *Interceptor {
	return &Interceptor{next: next}
}

// clientTransport is the per-client wrapper Install puts in place.
type clientTransport struct {
	owner *Interceptor
	next  http.RoundTripper
}

func (t *clientTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.owner.observe(req)
	return roundTrip(t.next, req)
}

// Install wraps client's transport so its requests are observed. Installing
// twice on the same client is a no-op.
func (i *Interceptor) Install(client *http.Client) {
	if i == nil || client == nil {
		return
	}
	if existing, ok := client.Transport.(*clientTransport); ok && existing.owner == i {
		return
	}
	client.Transport = &clientTransport{owner: i, next: client.Transport}
}

// RoundTrip records a usable locationId on the request URL and passes the
// request through unchanged.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	i.observe(req)
	return roundTrip(i.next, req)
}

// Observe records a usable locationId from a request the caller did not
// send through a wrapped client, such as one arriving on the bridge.
func (i *Interceptor) Observe(req *http.Request) {
	if i == nil {
		return
	}
	i.observe(req)
}

func (i *Interceptor) observe(req *http.Request) {
	if req == nil || req.URL == nil {
		return
	}
	if value := strings.TrimSpace(req.URL.Query().Get("locationId")); Valid(value) {
		i.mu.Lock()
		i.captured = value
		i.mu.Unlock()
	}
}

func roundTrip(next http.RoundTripper, req *http.Request) (*http.Response, error) {
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

// Captured returns the most recent locationId observed, if any.
func (i *Interceptor) Captured() (string, bool) {
	if i == nil {
		return "", false
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.captured, i.captured != ""
}
