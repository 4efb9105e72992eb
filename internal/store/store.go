// Package store persists per-user account data, scrobbled-track records and
// user health state in SQLite.
package store

import "time"

// FailureType categorizes a pipeline failure for the health state machine.
type FailureType string

const (
	FailureAuth      FailureType = "AUTH"
	FailureNetwork   FailureType = "NETWORK"
	FailureTemporary FailureType = "TEMPORARY"
)

// TrackRecord is the durable record of a previously scrobbled track.
//
// ArrayPosition is the 1-based rank the track held among the "today"
// entries when it was last scrobbled. MaxArrayPosition is the worst rank
// ever observed; it is informative only and must never be used as the
// comparison basis when deciding whether a track was replayed, because
// ranks from sessions with different list lengths are not comparable.
type TrackRecord struct {
	Title            string
	Artist           string
	Album            string
	ArrayPosition    int
	MaxArrayPosition int
	AddedAt          time.Time
}

// Key returns the reconciliation identity of the record.
func (r TrackRecord) Key() TrackKey {
	return TrackKey{Title: r.Title, Artist: r.Artist, Album: r.Album}
}

// TrackKey is the natural composite key of a track.
type TrackKey struct {
	Title  string
	Artist string
	Album  string
}

// HealthState is the per-user failure/notification state machine data.
//
// AuthNotificationCount only ever increases between successful scrobbles;
// a successful scrobble resets both it and ConsecutiveFailures. Once the
// count reaches 3 the user is deactivated until fresh credentials arrive.
type HealthState struct {
	ConsecutiveFailures    int
	LastFailureType        FailureType // "" when no failure recorded
	LastFailedAt           time.Time
	AuthNotificationCount  int
	LastNotificationSent   time.Time
	LastSuccessfulScrobble time.Time
	IsActive               bool
	NotificationsEnabled   bool
}

// User is one mirrored account.
type User struct {
	ID         int64
	Email      string
	Cookie     string // raw session cookie for the history provider
	SessionKey string // Last.fm session key
	Health     HealthState
	CreatedAt  time.Time
}
