// Package daemon schedules pipeline runs across all active users.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytmirror/ytmirror/internal/engine"
	"github.com/ytmirror/ytmirror/internal/store"
)

// Config holds scheduler configuration.
type Config struct {
	Interval        time.Duration // How often to sweep the active users
	RunTimeout      time.Duration // Time budget for one user's pipeline run
	Concurrency     int           // Max pipeline runs in flight at once
	RetentionWindow time.Duration // Track records older than this are pruned
}

// Scheduler sweeps the active users on a fixed interval and runs the
// pipeline for each under a bounded worker pool. A user with a run still in
// flight is skipped in later sweeps, so at most one run per user executes
// at a time.
type Scheduler struct {
	config   Config
	store    *store.Store
	pipeline *engine.Pipeline
	logger   zerolog.Logger

	mu      sync.Mutex
	running map[int64]struct{}
}

// New creates a Scheduler.
func New(cfg Config, st *store.Store, pipeline *engine.Pipeline, logger zerolog.Logger) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.RunTimeout == 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	if cfg.RetentionWindow == 0 {
		cfg.RetentionWindow = 24 * time.Hour
	}
	return &Scheduler{
		config:   cfg,
		store:    st,
		pipeline: pipeline,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		running:  map[int64]struct{}{},
	}
}

// Run starts the scheduler and blocks until a shutdown signal arrives. The
// first signal starts a graceful shutdown; a second forces exit.
func (s *Scheduler) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		s.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		s.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	if err := s.run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// run is the main sweep loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Int("concurrency", s.config.Concurrency).
		Msg("Starting scheduler")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Sweep immediately on start.
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
			s.prune(ctx)
		}
	}
}

// sweep dispatches one pipeline run for every active user not already
// running, bounded by the configured concurrency.
func (s *Scheduler) sweep(ctx context.Context) {
	users, err := s.store.ActiveUsers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list active users")
		return
	}
	if len(users) == 0 {
		return
	}

	s.logger.Debug().Int("users", len(users)).Msg("Sweeping active users")

	sem := make(chan struct{}, s.config.Concurrency)
	var wg sync.WaitGroup

	for _, user := range users {
		if !s.tryAcquire(user.ID) {
			s.logger.Debug().Int64("user_id", user.ID).Msg("Run still in flight, skipping")
			continue
		}

		wg.Add(1)
		go func(user store.User) {
			defer wg.Done()
			defer s.release(user.ID)

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
			defer cancel()

			outcome, err := s.pipeline.RunForUser(runCtx, user)
			if err != nil {
				s.logger.Warn().
					Int64("user_id", user.ID).
					Str("failure_type", string(outcome.FailureType)).
					Err(err).
					Msg("Run failed")
				return
			}
			s.logger.Info().
				Int64("user_id", user.ID).
				Int("scrobbled", outcome.Scrobbled).
				Int("skipped", outcome.Skipped).
				Int("rejected", outcome.Rejected).
				Int("failed", outcome.Failed).
				Bool("initialized", outcome.Initialized).
				Msg("Run complete")
		}(user)
	}

	wg.Wait()
}

// prune removes track records past the retention window. The positional
// diff only ever compares against the current day.
func (s *Scheduler) prune(ctx context.Context) {
	deleted, err := s.store.PruneTrackRecords(ctx, s.config.RetentionWindow)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to prune track records")
		return
	}
	if deleted > 0 {
		s.logger.Debug().Int64("deleted", deleted).Msg("Pruned stale track records")
	}
}

func (s *Scheduler) tryAcquire(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.running[userID]; ok {
		return false
	}
	s.running[userID] = struct{}{}
	return true
}

func (s *Scheduler) release(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, userID)
}
