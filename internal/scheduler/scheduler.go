// Package scheduler runs the background jobs of the tracker on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/logger"
)

// SessionPurgeSchedule is the schedule of the expired session purge.
const SessionPurgeSchedule = "@hourly"

const jobTimeout = 2 * time.Minute

// SymbolLister lists the symbols whose quotes should be kept warm.
type SymbolLister interface {
	OpenSymbols(ctx context.Context) ([]string, error)
}

// QuoteWarmer refreshes cached quotes.
type QuoteWarmer interface {
	Warm(ctx context.Context, symbols []string) int
}

// SessionPurger deletes expired sessions.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// Scheduler owns a cron runner with the quote warm-up and session purge jobs.
type Scheduler struct {
	cron     *cron.Cron
	symbols  SymbolLister
	warmer   QuoteWarmer
	sessions SessionPurger
}

// slogAdapter lets cron report through the application logger.
type slogAdapter struct{}

func (slogAdapter) Info(msg string, keysAndValues ...any) {
	logger.L.Debug("cron: "+msg, keysAndValues...)
}

func (slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	logger.L.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// New registers the jobs. An empty quoteSchedule disables the quote warm-up.
// Jobs are skipped while a previous run of the same job is still going.
func New(quoteSchedule string, symbols SymbolLister, warmer QuoteWarmer, sessions SessionPurger) (*Scheduler, error) {
	log := slogAdapter{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		symbols:  symbols,
		warmer:   warmer,
		sessions: sessions,
	}

	if quoteSchedule != "" {
		if _, err := s.cron.AddFunc(quoteSchedule, s.runWithTimeout(s.WarmQuotes)); err != nil {
			return nil, fmt.Errorf("invalid quote refresh schedule %q: %w", quoteSchedule, err)
		}
	}
	if _, err := s.cron.AddFunc(SessionPurgeSchedule, s.runWithTimeout(s.PurgeSessions)); err != nil {
		return nil, fmt.Errorf("invalid session purge schedule: %w", err)
	}

	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.L.Warn("Scheduler stopped before running jobs finished")
	}
}

func (s *Scheduler) runWithTimeout(job func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := job(ctx); err != nil {
			logger.L.Error("Scheduled job failed", "error", err)
		}
	}
}

// WarmQuotes refreshes the cached quote of every open position's symbol.
func (s *Scheduler) WarmQuotes(ctx context.Context) error {
	symbols, err := s.symbols.OpenSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open symbols: %w", err)
	}
	if len(symbols) == 0 {
		return nil
	}

	ok := s.warmer.Warm(ctx, symbols)
	logger.L.Info("Quote cache warmed", "symbols", len(symbols), "refreshed", ok)
	return nil
}

// PurgeSessions removes expired login sessions.
func (s *Scheduler) PurgeSessions(ctx context.Context) error {
	n, err := s.sessions.PurgeExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}
	if n > 0 {
		logger.L.Info("Expired sessions purged", "count", n)
	}
	return nil
}
