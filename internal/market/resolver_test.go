package market

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// stubProvider answers from a fixed price table and counts calls.
type stubProvider struct {
	name   string
	prices map[string]string
	delay  time.Duration
	calls  atomic.Int32
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return model.Quote{}, ctx.Err()
		}
	}
	price, ok := p.prices[symbol]
	if !ok {
		return model.Quote{}, errors.New("unknown symbol")
	}
	return model.Quote{Symbol: symbol, Price: decimal.RequireFromString(price)}, nil
}

func newTestResolver(providers ...Provider) *Resolver {
	return NewResolver(providers, WithRateLimit(0, 0), WithTTL(time.Minute), WithConcurrency(4))
}

// TestResolver_Quote tests provider chaining and caching.
//
// WHY: Quote sources are slow and rate limited; repeated page loads must not
// hit them again within the cache window.
func TestResolver_Quote(t *testing.T) {
	t.Run("serves repeated lookups from cache", func(t *testing.T) {
		p := &stubProvider{name: "stub", prices: map[string]string{"AAPL": "190"}}
		r := newTestResolver(p)

		for range 3 {
			q, err := r.Quote(context.Background(), "aapl")
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if q.Symbol != "AAPL" || q.Source != "stub" {
				t.Errorf("Unexpected quote %+v", q)
			}
		}
		if got := p.calls.Load(); got != 1 {
			t.Errorf("Expected 1 provider call, got %d", got)
		}
	})

	t.Run("refresh bypasses cache", func(t *testing.T) {
		p := &stubProvider{name: "stub", prices: map[string]string{"AAPL": "190"}}
		r := newTestResolver(p)

		_, _ = r.Quote(context.Background(), "AAPL")
		if _, err := r.Refresh(context.Background(), "AAPL"); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if got := p.calls.Load(); got != 2 {
			t.Errorf("Expected 2 provider calls, got %d", got)
		}
	})

	t.Run("falls back to next provider", func(t *testing.T) {
		first := &stubProvider{name: "first", prices: map[string]string{}}
		second := &stubProvider{name: "second", prices: map[string]string{"VWRL": "110.5"}}
		r := newTestResolver(first, second)

		q, err := r.Quote(context.Background(), "VWRL")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if q.Source != "second" || !q.Price.Equal(decimal.RequireFromString("110.5")) {
			t.Errorf("Unexpected quote %+v", q)
		}
	})

	t.Run("all providers failing", func(t *testing.T) {
		r := newTestResolver(&stubProvider{name: "stub", prices: map[string]string{}})

		_, err := r.Quote(context.Background(), "NOPE")
		if !errors.Is(err, apperrors.ErrQuoteUnavailable) {
			t.Errorf("Expected ErrQuoteUnavailable, got %v", err)
		}
	})

	t.Run("no providers", func(t *testing.T) {
		_, err := newTestResolver().Quote(context.Background(), "AAPL")
		if !errors.Is(err, apperrors.ErrQuoteUnavailable) {
			t.Errorf("Expected ErrQuoteUnavailable, got %v", err)
		}
	})

	t.Run("blank symbol", func(t *testing.T) {
		_, err := newTestResolver().Quote(context.Background(), "  ")
		if !errors.Is(err, apperrors.ErrInvalidSymbol) {
			t.Errorf("Expected ErrInvalidSymbol, got %v", err)
		}
	})

	t.Run("concurrent lookups share one call", func(t *testing.T) {
		p := &stubProvider{name: "stub", prices: map[string]string{"AAPL": "190"}, delay: 50 * time.Millisecond}
		r := newTestResolver(p)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := r.Quote(context.Background(), "AAPL"); err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
			}()
		}
		wg.Wait()

		if got := p.calls.Load(); got != 1 {
			t.Errorf("Expected 1 provider call, got %d", got)
		}
	})

	t.Run("cancelled caller does not fail joined callers", func(t *testing.T) {
		p := &stubProvider{name: "stub", prices: map[string]string{"AAPL": "190"}, delay: 100 * time.Millisecond}
		r := newTestResolver(p)

		firstCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		firstErr := make(chan error, 1)
		go func() {
			_, err := r.Quote(firstCtx, "AAPL")
			firstErr <- err
		}()

		// The first caller owns the upstream call once the provider is hit.
		deadline := time.Now().Add(time.Second)
		for p.calls.Load() == 0 {
			if time.Now().After(deadline) {
				t.Fatal("Provider was never called")
			}
			time.Sleep(time.Millisecond)
		}

		secondErr := make(chan error, 1)
		go func() {
			_, err := r.Quote(context.Background(), "AAPL")
			secondErr <- err
		}()
		time.Sleep(10 * time.Millisecond)
		cancel()

		if err := <-firstErr; !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled for the cancelled caller, got %v", err)
		}
		if err := <-secondErr; err != nil {
			t.Errorf("Expected the joined caller to get the quote, got %v", err)
		}
		if got := p.calls.Load(); got != 1 {
			t.Errorf("Expected 1 provider call, got %d", got)
		}
		if _, ok := r.cache.Get("AAPL"); !ok {
			t.Error("Expected the shared result to be cached")
		}
	})

	t.Run("fetch timeout bounds the upstream call", func(t *testing.T) {
		p := &stubProvider{name: "stub", prices: map[string]string{"AAPL": "190"}, delay: time.Second}
		r := NewResolver([]Provider{p}, WithRateLimit(0, 0), WithFetchTimeout(20*time.Millisecond))

		_, err := r.Quote(context.Background(), "AAPL")
		if !errors.Is(err, apperrors.ErrQuoteUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected ErrQuoteUnavailable wrapping DeadlineExceeded, got %v", err)
		}
	})
}

func TestResolver_Quotes(t *testing.T) {
	p := &stubProvider{name: "stub", prices: map[string]string{"AAPL": "190", "MSFT": "410"}}
	r := newTestResolver(p)

	quotes, failures := r.Quotes(context.Background(), []string{"AAPL", "msft", "AAPL", "DELISTED", ""})

	if len(quotes) != 2 {
		t.Errorf("Expected 2 quotes, got %v", quotes)
	}
	if _, ok := quotes["MSFT"]; !ok {
		t.Errorf("Expected MSFT keyed upper-case, got %v", quotes)
	}
	if len(failures) != 1 || failures["DELISTED"] == nil {
		t.Errorf("Expected only DELISTED to fail, got %v", failures)
	}
	if got := p.calls.Load(); got != 3 {
		t.Errorf("Expected 3 provider calls for distinct symbols, got %d", got)
	}
}

func TestResolver_Warm(t *testing.T) {
	p := &stubProvider{name: "stub", prices: map[string]string{"AAPL": "190"}}
	r := newTestResolver(p)

	if n := r.Warm(context.Background(), []string{"AAPL", "NOPE"}); n != 1 {
		t.Errorf("Expected 1 warmed quote, got %d", n)
	}
	if _, err := r.Quote(context.Background(), "AAPL"); err != nil {
		t.Fatalf("Expected cached quote, got %v", err)
	}
	if got := p.calls.Load(); got != 2 {
		t.Errorf("Expected warm-up calls only, got %d", got)
	}

	r.Invalidate()
	_, _ = r.Quote(context.Background(), "AAPL")
	if got := p.calls.Load(); got != 3 {
		t.Errorf("Expected a new call after invalidation, got %d", got)
	}
}

func TestResolver_RateLimit(t *testing.T) {
	p := &stubProvider{name: "stub", prices: map[string]string{"A": "1", "B": "2", "C": "3"}}
	r := NewResolver([]Provider{p}, WithRateLimit(20, 1), WithConcurrency(3))

	start := time.Now()
	quotes, _ := r.Quotes(context.Background(), []string{"A", "B", "C"})
	elapsed := time.Since(start)

	if len(quotes) != 3 {
		t.Fatalf("Expected 3 quotes, got %d", len(quotes))
	}
	// Three calls at 20/s with burst 1 need at least two 50ms gaps.
	if elapsed < 90*time.Millisecond {
		t.Errorf("Expected calls to be throttled, took %s", elapsed)
	}
}
