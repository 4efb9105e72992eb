package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytmirror/ytmirror/internal/notify"
	"github.com/ytmirror/ytmirror/internal/store"
	"github.com/ytmirror/ytmirror/internal/ytmusic"
	"github.com/ytmirror/ytmirror/pkg/lastfm"
)

// errSilentAuthFailure marks a run that returned a structurally valid page
// with zero tracks for a user who has scrobbled before: the request
// "succeeds" but the credentials are stale.
var errSilentAuthFailure = errors.New("history returned no tracks despite prior successful scrobbles")

// maxAuthNotifications caps the escalation ladder; sending the last rung
// also deactivates the user.
const maxAuthNotifications = 3

// notificationGaps is the minimum elapsed time since the previous
// notification before the next one may be sent. Index is the 1-based number
// of the notification about to be sent. The first is immediate; the second
// waits 2 days after the first; the third waits a further 3 days, which
// puts it at least 5 days after the first (the schedule is cumulative from
// the first notice).
var notificationGaps = [maxAuthNotifications + 1]time.Duration{
	0,
	0,
	2 * 24 * time.Hour,
	3 * 24 * time.Hour,
}

// ClassifyFailure maps a pipeline error to its failure type.
func ClassifyFailure(err error) store.FailureType {
	if err == nil {
		return store.FailureTemporary
	}

	if errors.Is(err, errSilentAuthFailure) {
		return store.FailureAuth
	}

	var fetchErr *ytmusic.FetchError
	if errors.As(err, &fetchErr) {
		switch {
		case fetchErr.StatusCode == 401 || fetchErr.StatusCode == 403:
			return store.FailureAuth
		case fetchErr.Err != nil && isHeaderRejection(fetchErr.Err):
			// A cookie the transport refuses to send is operationally the
			// same as expired credentials: the user must re-supply them.
			return store.FailureAuth
		case fetchErr.Err != nil && isNetworkFailure(fetchErr.Err):
			return store.FailureNetwork
		case fetchErr.StatusCode >= 500:
			return store.FailureNetwork
		}
		return store.FailureTemporary
	}

	var lfmErr *lastfm.Error
	if errors.As(err, &lfmErr) {
		if lfmErr.AuthFailure() {
			return store.FailureAuth
		}
		return store.FailureTemporary
	}

	if isNetworkFailure(err) {
		return store.FailureNetwork
	}

	return store.FailureTemporary
}

func isNetworkFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isHeaderRejection detects net/http refusing to send a malformed header
// value. The transport reports this as a plain error with no sentinel type.
func isHeaderRejection(err error) bool {
	return strings.Contains(err.Error(), "invalid header field value")
}

// HealthTracker applies failure and success events to a user's health state
// and drives the auth-notification escalation.
type HealthTracker struct {
	store      HealthStore
	dispatcher notify.Dispatcher
	now        func() time.Time
	logger     zerolog.Logger
}

// HealthStore is the slice of the record store the tracker needs.
type HealthStore interface {
	GetHealthState(ctx context.Context, userID int64) (store.HealthState, error)
	UpdateHealthState(ctx context.Context, userID int64, h store.HealthState) error
}

// NewHealthTracker creates a HealthTracker. now may be nil (defaults to
// time.Now); tests inject a fixed clock.
func NewHealthTracker(s HealthStore, dispatcher notify.Dispatcher, now func() time.Time, logger zerolog.Logger) *HealthTracker {
	if now == nil {
		now = time.Now
	}
	return &HealthTracker{
		store:      s,
		dispatcher: dispatcher,
		now:        now,
		logger:     logger.With().Str("component", "health").Logger(),
	}
}

// RecordFailure classifies err, updates the user's counters and, for auth
// failures, advances the notification schedule. Returns the classification.
func (t *HealthTracker) RecordFailure(ctx context.Context, user store.User, err error) (store.FailureType, error) {
	failureType := ClassifyFailure(err)
	now := t.now()

	h, loadErr := t.store.GetHealthState(ctx, user.ID)
	if loadErr != nil {
		return failureType, fmt.Errorf("failed to load health state: %w", loadErr)
	}

	h.ConsecutiveFailures++
	h.LastFailureType = failureType
	h.LastFailedAt = now

	t.logger.Warn().
		Int64("user_id", user.ID).
		Str("failure_type", string(failureType)).
		Int("consecutive_failures", h.ConsecutiveFailures).
		Err(err).
		Msg("Pipeline failure")

	if failureType == store.FailureAuth {
		t.advanceNotifications(ctx, user, &h, now)
	}

	if updateErr := t.store.UpdateHealthState(ctx, user.ID, h); updateErr != nil {
		return failureType, fmt.Errorf("failed to update health state: %w", updateErr)
	}
	return failureType, nil
}

// RecordSuccess resets the failure counters after a successful scrobble.
func (t *HealthTracker) RecordSuccess(ctx context.Context, user store.User) error {
	h, err := t.store.GetHealthState(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load health state: %w", err)
	}

	h.ConsecutiveFailures = 0
	h.AuthNotificationCount = 0
	h.LastFailureType = ""
	h.LastSuccessfulScrobble = t.now()

	if err := t.store.UpdateHealthState(ctx, user.ID, h); err != nil {
		return fmt.Errorf("failed to update health state: %w", err)
	}
	return nil
}

// advanceNotifications sends the next auth notification when the schedule
// allows, bumping the count and deactivating the user after the last one.
// Mutates h; the caller persists it.
func (t *HealthTracker) advanceNotifications(ctx context.Context, user store.User, h *store.HealthState, now time.Time) {
	if h.AuthNotificationCount >= maxAuthNotifications {
		return
	}
	if !h.NotificationsEnabled || user.Email == "" {
		return
	}

	next := h.AuthNotificationCount + 1
	if next > 1 {
		elapsed := now.Sub(h.LastNotificationSent)
		if h.LastNotificationSent.IsZero() || elapsed < notificationGaps[next] {
			return
		}
	}

	if err := t.dispatcher.SendAuthNotification(ctx, user.Email, next); err != nil {
		// Leave the counters untouched so the attempt repeats next run.
		t.logger.Error().Err(err).Int64("user_id", user.ID).Int("attempt", next).
			Msg("Failed to send auth notification")
		return
	}

	h.AuthNotificationCount = next
	h.LastNotificationSent = now

	t.logger.Info().
		Int64("user_id", user.ID).
		Int("attempt", next).
		Msg("Sent auth notification")

	if next == maxAuthNotifications {
		h.IsActive = false
		t.logger.Warn().Int64("user_id", user.ID).Msg("Deactivating user after final auth notification")
	}
}
