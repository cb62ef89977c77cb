package location

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	sets   int
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sets++
	m.values[key] = value
	return nil
}

type countingRequester struct {
	calls int
}

func (c *countingRequester) RequestLocation(context.Context) error {
	c.calls++
	return nil
}

func TestValid(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"", false},
		{"short", false},
		{"123456789", false},
		{"1234567890", true},
		{"{{location.id}}", false},
		{"abcdefghij{{x", false},
		{"  ve9EPM428h8vShlRW1KT  ", true},
	}
	for _, tt := range tests {
		if got := Valid(tt.id); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestQueryParamWinsOverEveryOtherStrategy(t *testing.T) {
	store := newMemoryStore()
	store.values[CacheKey] = "cachedvalue0001"
	interceptor := NewInterceptor(nil)
	interceptor.captured = "interceptedvalue01"
	host := Host{
		PageURL:    "https://widget.example.test/?locationId=ve9EPM428h8vShlRW1KT",
		TopURL:     "https://widget.example.test/v2/location/topframevalue01/contacts",
		Referrer:   "https://app.example.test/v2/location/referrervalue01/launchpad",
		WindowName: `{"locationId":"windownamevalue01"}`,
	}
	r := NewResolver(DefaultStrategies(host, interceptor, store, nil), WithStore(store))
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != "ve9EPM428h8vShlRW1KT" || got.Source != SourceQuery {
		t.Fatalf("got %+v, want query value", got)
	}
	if store.values[CacheKey] != "ve9EPM428h8vShlRW1KT" {
		t.Fatalf("resolved value not persisted, cache=%q", store.values[CacheKey])
	}
}

func TestInvalidQueryValuesFallThrough(t *testing.T) {
	for _, page := range []string{
		"https://widget.example.test/?locationId=short",
		"https://widget.example.test/?locationId={{location.id}}",
		"https://widget.example.test/?locationId=",
	} {
		t.Run(page, func(t *testing.T) {
			host := Host{
				PageURL:  page,
				Referrer: "https://app.example.test/v2/location/referrervalue01/launchpad",
			}
			r := NewResolver(DefaultStrategies(host, nil, nil, nil))
			got, err := r.Resolve(context.Background())
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got.Source != SourceReferrer || got.ID != "referrervalue01" {
				t.Fatalf("got %+v, want referrer fallback", got)
			}
		})
	}
}

func TestQueryParamAlternateKeys(t *testing.T) {
	host := Host{PageURL: "https://widget.example.test/?locationId=%7B%7Blocation.id%7D%7D&location_id=alternatekey001"}
	got, err := NewResolver([]Strategy{QueryParam(host)}).Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != "alternatekey001" {
		t.Fatalf("got %q, want alternatekey001", got.ID)
	}
}

func TestTopFrameRequiresSameOrigin(t *testing.T) {
	crossOrigin := Host{
		PageURL: "https://widget.example.test/embed",
		TopURL:  "https://app.other.test/v2/location/topframevalue01/contacts",
	}
	if _, ok := TopFrame(crossOrigin).Lookup(context.Background()); ok {
		t.Fatalf("cross-origin top frame must not be inspected")
	}
	sameOrigin := Host{
		PageURL: "https://app.example.test/embed",
		TopURL:  "https://app.example.test/v2/location/topframevalue01/contacts",
	}
	id, ok := TopFrame(sameOrigin).Lookup(context.Background())
	if !ok || id != "topframevalue01" {
		t.Fatalf("same-origin top frame lookup = %q/%v", id, ok)
	}
	queryOnly := Host{
		PageURL: "https://app.example.test/embed",
		TopURL:  "https://app.example.test/dashboard?location=topqueryvalue01",
	}
	id, ok = TopFrame(queryOnly).Lookup(context.Background())
	if !ok || id != "topqueryvalue01" {
		t.Fatalf("top frame query lookup = %q/%v", id, ok)
	}
	notEmbedded := Host{PageURL: "https://app.example.test/v2/location/pagepathvalue1/x"}
	if _, ok := TopFrame(notEmbedded).Lookup(context.Background()); ok {
		t.Fatalf("top frame must be skipped when not embedded")
	}
}

func TestPagePathStrategy(t *testing.T) {
	host := Host{PageURL: "https://app.example.test/v2/location/pagepathvalue1/custom-page"}
	id, ok := PagePath(host).Lookup(context.Background())
	if !ok || id != "pagepathvalue1" {
		t.Fatalf("PagePath = %q/%v", id, ok)
	}
}

func TestWindowNameStrategy(t *testing.T) {
	tests := []struct {
		name   string
		window string
		want   string
		ok     bool
	}{
		{"json payload", `{"locationId":"windownamevalue01"}`, "windownamevalue01", true},
		{"json without field", `{"other":"abcdefghijklmnop"}`, "", false},
		{"json numeric field", `{"locationId": 12345678901}`, "", false},
		{"json null field", `{"locationId": null, "note":"abcdefghijklmnop"}`, "", false},
		{"json array", `["abcdefghijklmnop"]`, "abcdefghijklmnop", true},
		{"raw token", "frame-for loc ABCdef123456 please", "ABCdef123456", true},
		{"nothing id shaped", "tiny frame", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := WindowName(Host{WindowName: tt.window}).Lookup(context.Background())
			if ok != tt.ok || got != tt.want {
				t.Fatalf("WindowName(%q) = %q/%v, want %q/%v", tt.window, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCacheFallbackAndParentRequest(t *testing.T) {
	store := newMemoryStore()
	requester := &countingRequester{}
	r := NewResolver(DefaultStrategies(Host{}, nil, store, requester), WithStore(store))

	if _, err := r.Resolve(context.Background()); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if requester.calls != 1 {
		t.Fatalf("parent should be asked once, got %d", requester.calls)
	}

	// the parent's reply lands through Remember
	if err := r.Remember(context.Background(), "parentreply0001"); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve after reply: %v", err)
	}
	if got.ID != "parentreply0001" || got.Source != SourceCache {
		t.Fatalf("got %+v, want cached parent reply", got)
	}
	if requester.calls != 1 {
		t.Fatalf("parent must not be asked once the cache answers, got %d", requester.calls)
	}
	if store.sets != 1 {
		t.Fatalf("cache hits must not rewrite the cache, sets=%d", store.sets)
	}
}

func TestInvalidCachedValueIsIgnored(t *testing.T) {
	store := newMemoryStore()
	store.values[CacheKey] = "{{location.id}}"
	_, err := NewResolver([]Strategy{Cached(store)}).Resolve(context.Background())
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
}

func TestRememberRejectsInvalidIDs(t *testing.T) {
	store := newMemoryStore()
	r := NewResolver(nil, WithStore(store))
	if err := r.Remember(context.Background(), "{{location.id}}"); err == nil {
		t.Fatalf("expected error for template marker")
	}
	if len(store.values) != 0 {
		t.Fatalf("invalid id must not reach the cache")
	}
}

func TestPanickingStrategyIsContained(t *testing.T) {
	boom := StrategyFunc("boom", func(context.Context) (string, bool) {
		panic("strategy exploded")
	})
	fallback := StrategyFunc("fallback", func(context.Context) (string, bool) {
		return "fallbackvalue01", true
	})
	got, err := NewResolver([]Strategy{boom, fallback}).Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Source != "fallback" {
		t.Fatalf("got %+v, want fallback", got)
	}
}

func TestCacheWriteFailureIsNotFatal(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("disk full")
	host := Host{PageURL: "https://widget.example.test/?locationId=ve9EPM428h8vShlRW1KT"}
	r := NewResolver(DefaultStrategies(host, nil, store, nil), WithStore(store))
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != "ve9EPM428h8vShlRW1KT" {
		t.Fatalf("got %+v", got)
	}
}

func TestWindowNameNeverYieldsTheKeyText(t *testing.T) {
	host := Host{WindowName: `{"locationId": 12345678901}`}
	_, err := NewResolver([]Strategy{WindowName(host)}).Resolve(context.Background())
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
}
