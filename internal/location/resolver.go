package location

import (
	"context"
	"fmt"
	"strings"
)

// Resolver runs its strategies in order and returns the first valid
// identifier. It holds no state of its own beyond the cache, so it is
// re-run in full whenever the identifier is needed.
type Resolver struct {
	strategies []Strategy
	store      Store
	logger     Logger
}

// Option customizes Resolver construction.
type Option func(*Resolver)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithStore sets the cache written after every successful resolution.
func WithStore(s Store) Option {
	return func(r *Resolver) {
		r.store = s
	}
}

// NewResolver builds a resolver over the given strategies.
func NewResolver(strategies []Strategy, opts ...Option) *Resolver {
	r := &Resolver{
		strategies: strategies,
		logger:     nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve walks the strategies and returns the first valid identifier,
// or ErrUnresolved. Successful results are persisted to the cache.
func (r *Resolver) Resolve(ctx context.Context) (Result, error) {
	if r == nil {
		return Result{}, ErrUnresolved
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, strategy := range r.strategies {
		if strategy == nil {
			continue
		}
		candidate, ok := r.lookup(ctx, strategy)
		if !ok {
			continue
		}
		candidate = strings.TrimSpace(candidate)
		if !Valid(candidate) {
			r.logger.Printf("location: %s offered unusable value %q", strategy.Name(), candidate)
			continue
		}
		result := Result{ID: candidate, Source: strategy.Name()}
		if result.Source != SourceCache {
			if err := r.persist(ctx, candidate); err != nil {
				r.logger.Printf("location: cache write failed: %v", err)
			}
		}
		r.logger.Printf("location: resolved via %s", result.Source)
		return result, nil
	}
	r.logger.Printf("location: no strategy produced an identifier")
	return Result{}, ErrUnresolved
}

// Remember stores an identifier delivered out of band, such as a reply from
// the embedding parent, so the next Resolve can pick it up.
func (r *Resolver) Remember(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if !Valid(id) {
		return fmt.Errorf("location: refusing to remember %q", id)
	}
	if r == nil || r.store == nil {
		return fmt.Errorf("location: no cache configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return r.persist(ctx, id)
}

func (r *Resolver) persist(ctx context.Context, id string) error {
	if r.store == nil {
		return nil
	}
	return r.store.Set(ctx, CacheKey, id)
}

// lookup confines a panicking strategy to its own attempt.
func (r *Resolver) lookup(ctx context.Context, strategy Strategy) (id string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Printf("location: strategy %s panicked: %v", strategy.Name(), rec)
			id, ok = "", false
		}
	}()
	return strategy.Lookup(ctx)
}
