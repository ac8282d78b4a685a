package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/logger"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// Resolver defaults.
const (
	DefaultTTL           = time.Minute
	DefaultRatePerSecond = 2.0
	DefaultConcurrency   = 4
	DefaultFetchTimeout  = 15 * time.Second
)

// Resolver answers quote lookups from a short-lived cache, falling back to
// its providers in order. Concurrent lookups of the same symbol share one
// upstream call and every upstream call waits on a shared rate limiter.
type Resolver struct {
	providers    []Provider
	cache        *cache.Cache
	group        singleflight.Group
	limiter      *rate.Limiter
	concurrency  int
	fetchTimeout time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTTL sets how long a fetched quote is served from cache.
// Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl <= 0 {
			return
		}
		r.cache = cache.New(ttl, 2*ttl)
	}
}

// WithRateLimit limits outbound provider calls to perSecond, with bursts of
// up to burst calls. A non-positive perSecond disables the limit.
func WithRateLimit(perSecond float64, burst int) ResolverOption {
	return func(r *Resolver) {
		if perSecond <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithConcurrency bounds how many symbols Quotes resolves at once.
func WithConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		r.concurrency = max(n, 1)
	}
}

// WithFetchTimeout bounds one shared upstream lookup, independent of the
// callers waiting on it. Non-positive values keep DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.fetchTimeout = d
		}
	}
}

// NewResolver creates a resolver over providers, tried in the given order.
func NewResolver(providers []Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		providers:    providers,
		cache:        cache.New(DefaultTTL, 2*DefaultTTL),
		limiter:      rate.NewLimiter(rate.Limit(DefaultRatePerSecond), 1),
		concurrency:  DefaultConcurrency,
		fetchTimeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func cacheKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Quote returns the quote for symbol, from cache when fresh.
// The error wraps apperrors.ErrQuoteUnavailable when every provider failed.
func (r *Resolver) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	key := cacheKey(symbol)
	if key == "" {
		return model.Quote{}, apperrors.ErrInvalidSymbol
	}
	if q, ok := r.cache.Get(key); ok {
		return q.(model.Quote), nil
	}
	return r.load(ctx, key)
}

// Refresh fetches symbol from the providers even when a cached quote exists,
// and caches the result.
func (r *Resolver) Refresh(ctx context.Context, symbol string) (model.Quote, error) {
	key := cacheKey(symbol)
	if key == "" {
		return model.Quote{}, apperrors.ErrInvalidSymbol
	}
	return r.load(ctx, key)
}

// load runs one upstream lookup per key. The lookup is shared by every
// caller, so it runs detached from any single caller's context; each caller
// stops waiting when its own context ends.
func (r *Resolver) load(ctx context.Context, key string) (model.Quote, error) {
	ch := r.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()

		q, err := r.fetch(fctx, key)
		if err != nil {
			return nil, err
		}
		r.cache.Set(key, q, cache.DefaultExpiration)
		return q, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return model.Quote{}, res.Err
		}
		return res.Val.(model.Quote), nil
	case <-ctx.Done():
		return model.Quote{}, ctx.Err()
	}
}

// fetch tries each provider in order and returns the first quote.
func (r *Resolver) fetch(ctx context.Context, symbol string) (model.Quote, error) {
	var errs []error
	for _, p := range r.providers {
		if err := r.limiter.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		q, err := p.Quote(ctx, symbol)
		if err != nil {
			logger.L.Debug("Quote provider failed", "provider", p.Name(), "symbol", symbol, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		q.Symbol = symbol
		if q.Source == "" {
			q.Source = p.Name()
		}
		return q, nil
	}
	if len(r.providers) == 0 {
		errs = append(errs, errors.New("no quote providers configured"))
	}
	return model.Quote{}, fmt.Errorf("%w: %s: %w", apperrors.ErrQuoteUnavailable, symbol, errors.Join(errs...))
}

// Quotes resolves many symbols concurrently. The returned map holds every
// quote that could be resolved, keyed by upper-cased symbol; failures are
// reported per symbol and never abort the other lookups.
func (r *Resolver) Quotes(ctx context.Context, symbols []string) (map[string]model.Quote, map[string]error) {
	quotes := make(map[string]model.Quote, len(symbols))
	failures := make(map[string]error)
	var mu sync.Mutex

	seen := make(map[string]bool, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, s := range symbols {
		key := cacheKey(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		g.Go(func() error {
			q, err := r.Quote(gctx, key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[key] = err
				return nil
			}
			quotes[key] = q
			return nil
		})
	}
	_ = g.Wait()

	for symbol, err := range failures {
		logger.L.Warn("Quote unavailable", "symbol", symbol, "error", err)
	}
	return quotes, failures
}

// Warm refreshes the cached quotes of symbols and returns how many succeeded.
func (r *Resolver) Warm(ctx context.Context, symbols []string) int {
	var ok int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, s := range symbols {
		g.Go(func() error {
			if _, err := r.Refresh(gctx, s); err != nil {
				logger.L.Warn("Quote refresh failed", "symbol", s, "error", err)
				return nil
			}
			mu.Lock()
			ok++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return ok
}

// Invalidate drops every cached quote.
func (r *Resolver) Invalidate() {
	r.cache.Flush()
}
