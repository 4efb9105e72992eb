// Package engine runs the per-user mirroring pipeline: fetch the history
// page, extract and parse the embedded data, reconcile the today-list
// against persisted records, submit scrobbles, and keep the user's health
// state current.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytmirror/ytmirror/internal/locale"
	"github.com/ytmirror/ytmirror/internal/store"
	"github.com/ytmirror/ytmirror/internal/ytmusic"
)

// HistoryFetcher retrieves the raw history page for a session cookie.
type HistoryFetcher interface {
	FetchHistoryPage(ctx context.Context, cookie string) (string, error)
}

// Store is the slice of the record store the pipeline needs.
type Store interface {
	HealthStore
	GetTrackRecords(ctx context.Context, userID int64) ([]store.TrackRecord, error)
	UpsertTrackRecord(ctx context.Context, userID int64, r store.TrackRecord) error
}

// RunOutcome summarizes one pipeline run for a user.
type RunOutcome struct {
	Scrobbled   int // submissions the provider accepted
	Skipped     int // today-list entries that were not new plays
	Rejected    int // submissions the provider acknowledged and ignored
	Failed      int // submissions that errored; remaining tracks still ran
	Initialized bool
	FailureType store.FailureType // classification when the run failed, "" otherwise

	// UnmatchedMarkers are the distinct shelf headings that matched
	// neither date table, surfaced so the locale tables can be extended.
	UnmatchedMarkers []string
}

// Pipeline is the per-user mirroring engine. A single Pipeline is shared by
// all users; runs for different users may execute concurrently, and no
// mutable state crosses user boundaries except through the store.
type Pipeline struct {
	fetcher   HistoryFetcher
	submitter Submitter
	store     Store
	health    *HealthTracker
	now       func() time.Time
	logger    zerolog.Logger
}

// NewPipeline creates a Pipeline. now may be nil (defaults to time.Now).
func NewPipeline(fetcher HistoryFetcher, submitter Submitter, s Store, health *HealthTracker, now func() time.Time, logger zerolog.Logger) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		fetcher:   fetcher,
		submitter: submitter,
		store:     s,
		health:    health,
		now:       now,
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// RunForUser executes one full pipeline pass for a user. Stage failures are
// classified into the user's health state before returning; the returned
// error is the typed stage error for logging, never a raw panic-path value.
// Per-track submission failures do not fail the run.
func (p *Pipeline) RunForUser(ctx context.Context, user store.User) (RunOutcome, error) {
	var outcome RunOutcome
	logger := p.logger.With().Int64("user_id", user.ID).Logger()

	fail := func(err error) (RunOutcome, error) {
		failureType, healthErr := p.health.RecordFailure(ctx, user, err)
		if healthErr != nil {
			logger.Error().Err(healthErr).Msg("Failed to record failure")
		}
		outcome.FailureType = failureType
		return outcome, err
	}

	cookie := ytmusic.SanitizeCookie(user.Cookie)

	page, err := p.fetcher.FetchHistoryPage(ctx, cookie)
	if err != nil {
		return fail(err)
	}

	payloads, err := ytmusic.ExtractInitialData(page, logger)
	if err != nil {
		return fail(err)
	}

	entries, err := ytmusic.ParseHistory(payloads, logger)
	if err != nil {
		return fail(err)
	}

	// A structurally valid page with zero tracks is a silent auth failure
	// once the user has scrobbled before: stale credentials produce an
	// empty logged-out rendering of the same page. Without a prior
	// scrobble an empty history is taken at face value.
	if len(entries) == 0 {
		if !user.Health.LastSuccessfulScrobble.IsZero() {
			return fail(errSilentAuthFailure)
		}
		logger.Debug().Msg("History empty, nothing to do")
		return outcome, nil
	}

	today := make([]ytmusic.TrackEntry, 0, len(entries))
	markers := make([]string, 0, len(entries))
	for _, e := range entries {
		markers = append(markers, e.RecencyMarker)
		if locale.Classify(e.RecencyMarker).IsToday {
			today = append(today, e)
		}
	}
	outcome.UnmatchedMarkers = locale.UnmatchedMarkers(markers)
	if len(outcome.UnmatchedMarkers) > 0 {
		logger.Info().Strs("markers", outcome.UnmatchedMarkers).Msg("Unrecognized recency markers")
	}

	records, err := p.store.GetTrackRecords(ctx, user.ID)
	if err != nil {
		return fail(err)
	}

	plan := Reconcile(today, records, p.now())

	if plan.Initialized {
		// First run: persist positions, scrobble nothing.
		for _, action := range plan.Actions {
			if err := p.store.UpsertTrackRecord(ctx, user.ID, action.Record); err != nil {
				return fail(err)
			}
		}
		outcome.Initialized = true
		logger.Info().Int("tracks", len(plan.Actions)).Msg("Initialized track positions for new user")
		return outcome, nil
	}

	// Each track's outcome is independent; state updates are flushed per
	// decision so a mid-run cancellation loses at most the unprocessed
	// tail, never an already-recorded result.
	var firstSubmitErr error
	for _, action := range plan.Actions {
		if !action.Scrobble {
			outcome.Skipped++
			continue
		}

		result, err := p.submitter.Submit(ctx, user.SessionKey, action.Entry, p.now())
		if err != nil {
			logger.Warn().Err(err).
				Str("track", action.Entry.Title).
				Str("artist", action.Entry.Artist).
				Msg("Scrobble submission failed")
			outcome.Failed++
			if firstSubmitErr == nil {
				firstSubmitErr = err
			}
			continue
		}

		switch result.Status {
		case SubmitAccepted:
			if err := p.store.UpsertTrackRecord(ctx, user.ID, action.Record); err != nil {
				return fail(err)
			}
			if err := p.health.RecordSuccess(ctx, user); err != nil {
				logger.Error().Err(err).Msg("Failed to record success")
			}
			outcome.Scrobbled++
			logger.Info().
				Str("track", action.Entry.Title).
				Str("artist", action.Entry.Artist).
				Int("position", action.Position).
				Bool("replay", action.Replay).
				Msg("Scrobbled")
		case SubmitIgnored:
			// Provider-side rejection: logged, not persisted, not a
			// user-health failure.
			outcome.Rejected++
		}
	}

	// Individual rejections leave the run an overall success; a run where
	// every attempted submission errored is a single failure event.
	attempted := outcome.Scrobbled + outcome.Rejected + outcome.Failed
	if attempted > 0 && outcome.Scrobbled == 0 && outcome.Rejected == 0 && firstSubmitErr != nil {
		return fail(firstSubmitErr)
	}

	return outcome, nil
}
