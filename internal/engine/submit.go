package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytmirror/ytmirror/internal/ytmusic"
	"github.com/ytmirror/ytmirror/pkg/lastfm"
)

// SubmissionError reports a scrobble submission that failed outright, as
// opposed to one the provider acknowledged and ignored.
type SubmissionError struct {
	Title  string
	Artist string
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("failed to scrobble %q by %q: %v", e.Title, e.Artist, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// SubmitStatus classifies one submission outcome.
type SubmitStatus int

const (
	// SubmitAccepted: the provider counted the scrobble.
	SubmitAccepted SubmitStatus = iota
	// SubmitIgnored: the provider acknowledged but rejected the scrobble
	// (e.g. timestamp too old). Not retryable.
	SubmitIgnored
)

// SubmitResult is the outcome of a single accepted-or-ignored submission.
type SubmitResult struct {
	Status        SubmitStatus
	IgnoredReason string
}

// Submitter submits one scrobble on behalf of a user session.
type Submitter interface {
	Submit(ctx context.Context, sessionKey string, entry ytmusic.TrackEntry, timestamp time.Time) (SubmitResult, error)
}

// LastfmSubmitter submits scrobbles through the Last.fm API client.
type LastfmSubmitter struct {
	client *lastfm.Client
	logger zerolog.Logger
}

// NewLastfmSubmitter creates a LastfmSubmitter.
func NewLastfmSubmitter(client *lastfm.Client, logger zerolog.Logger) *LastfmSubmitter {
	return &LastfmSubmitter{
		client: client,
		logger: logger.With().Str("component", "submitter").Logger(),
	}
}

// Submit sends one scrobble and interprets the accepted/ignored pair. A
// response that neither accepts nor ignores the scrobble is a submission
// error: the provider took the request but did not account for it.
func (s *LastfmSubmitter) Submit(ctx context.Context, sessionKey string, entry ytmusic.TrackEntry, timestamp time.Time) (SubmitResult, error) {
	track := lastfm.Track{
		Artist: entry.Artist,
		Track:  entry.Title,
		Album:  entry.Album,
	}

	resp, err := s.client.Scrobble(ctx, sessionKey, track, timestamp)
	if err != nil {
		return SubmitResult{}, &SubmissionError{Title: entry.Title, Artist: entry.Artist, Err: err}
	}

	switch {
	case resp.Accepted == 1:
		s.logger.Debug().Str("track", entry.Title).Str("artist", entry.Artist).Msg("Scrobble accepted")
		return SubmitResult{Status: SubmitAccepted}, nil
	case resp.Ignored == 1:
		reason := ""
		if len(resp.Scrobbles) > 0 {
			reason = resp.Scrobbles[0].IgnoredMessage.Text
		}
		s.logger.Info().
			Str("track", entry.Title).
			Str("artist", entry.Artist).
			Str("reason", reason).
			Msg("Scrobble ignored by provider")
		return SubmitResult{Status: SubmitIgnored, IgnoredReason: reason}, nil
	default:
		return SubmitResult{}, &SubmissionError{
			Title:  entry.Title,
			Artist: entry.Artist,
			Err:    fmt.Errorf("scrobble neither accepted nor ignored (accepted=%d, ignored=%d)", resp.Accepted, resp.Ignored),
		}
	}
}
