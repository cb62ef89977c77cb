package location

import (
	"context"
	"encoding/json"
	"strings"
)

// Strategy is one way of recovering the identifier. Lookup is best effort:
// it returns false rather than an error when it has nothing to offer.
type Strategy interface {
	Name() string
	Lookup(ctx context.Context) (string, bool)
}

type strategyFunc struct {
	name   string
	lookup func(context.Context) (string, bool)
}

func (s strategyFunc) Name() string { return s.name }

func (s strategyFunc) Lookup(ctx context.Context) (string, bool) { return s.lookup(ctx) }

// StrategyFunc adapts a function into a named Strategy.
func StrategyFunc(name string, lookup func(context.Context) (string, bool)) Strategy {
	return strategyFunc{name: name, lookup: lookup}
}

// Strategy names, also reported as Result.Source.
const (
	SourceQuery       = "query"
	SourceIntercepted = "intercepted"
	SourceTopFrame    = "top-frame"
	SourceReferrer    = "referrer"
	SourcePagePath    = "page-path"
	SourceWindowName  = "window-name"
	SourceCache       = "cache"
	SourceParent      = "parent"

	// SourceSession marks an id the host pushed over the bridge that only
	// the running session holds.
	SourceSession = "session"
)

// QueryParam reads locationId (or location_id / location) from the page URL.
func QueryParam(host Host) Strategy {
	return StrategyFunc(SourceQuery, func(context.Context) (string, bool) {
		return fromQuery(host.PageURL)
	})
}

// Intercepted returns the last locationId seen on an outbound request.
func Intercepted(interceptor *Interceptor) Strategy {
	return StrategyFunc(SourceIntercepted, func(context.Context) (string, bool) {
		if interceptor == nil {
			return "", false
		}
		return interceptor.Captured()
	})
}

// TopFrame inspects the top-level frame URL, but only when the widget is
// embedded in a frame of the same origin.
func TopFrame(host Host) Strategy {
	return StrategyFunc(SourceTopFrame, func(context.Context) (string, bool) {
		if !host.Embedded() || !host.SameOrigin() {
			return "", false
		}
		if id, ok := fromPath(host.TopURL); ok && Valid(id) {
			return id, true
		}
		return fromQuery(host.TopURL)
	})
}

// Referrer parses a /location/<id> segment out of the referring URL.
func Referrer(host Host) Strategy {
	return StrategyFunc(SourceReferrer, func(context.Context) (string, bool) {
		return fromPath(host.Referrer)
	})
}

// PagePath parses a /location/<id> segment out of the page's own path.
func PagePath(host Host) Strategy {
	return StrategyFunc(SourcePagePath, func(context.Context) (string, bool) {
		return fromPath(host.PageURL)
	})
}

// WindowName treats the host-provided name either as a JSON object with a
// locationId field or as free text containing an id-shaped token.
func WindowName(host Host) Strategy {
	return StrategyFunc(SourceWindowName, func(context.Context) (string, bool) {
		raw := strings.TrimSpace(host.WindowName)
		if raw == "" {
			return "", false
		}
		var payload map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			// a JSON object only counts through a string locationId
			var id string
			if json.Unmarshal(payload["locationId"], &id) != nil {
				return "", false
			}
			id = strings.TrimSpace(id)
			return id, id != ""
		}
		if token := idTokenPattern.FindString(raw); token != "" {
			return token, true
		}
		return "", false
	})
}

// Cached returns the last identifier written to the persisted cache.
func Cached(store Store) Strategy {
	return StrategyFunc(SourceCache, func(ctx context.Context) (string, bool) {
		if store == nil {
			return "", false
		}
		id, ok, err := store.Get(ctx, CacheKey)
		if err != nil || !ok {
			return "", false
		}
		return id, true
	})
}

// AskParent fires a request to the embedding parent and never yields a
// value itself. A reply, if any, lands in the cache for later resolutions.
func AskParent(requester Requester) Strategy {
	return StrategyFunc(SourceParent, func(ctx context.Context) (string, bool) {
		if requester != nil {
			_ = requester.RequestLocation(ctx)
		}
		return "", false
	})
}

// DefaultStrategies returns the built-in strategies in priority order.
func DefaultStrategies(host Host, interceptor *Interceptor, store Store, requester Requester) []Strategy {
	return []Strategy{
		QueryParam(host),
		Intercepted(interceptor),
		TopFrame(host),
		Referrer(host),
		PagePath(host),
		WindowName(host),
		Cached(store),
		AskParent(requester),
	}
}
