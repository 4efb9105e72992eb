package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytmirror/ytmirror/internal/store"
	"github.com/ytmirror/ytmirror/internal/ytmusic"
	"github.com/ytmirror/ytmirror/pkg/lastfm"
)

func newTestSubmitter(t *testing.T, response string) *LastfmSubmitter {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:    "k",
		APISecret: "s",
		BaseURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewLastfmSubmitter(client, zerolog.Nop())
}

func TestSubmitAccepted(t *testing.T) {
	submitter := newTestSubmitter(t, `<lfm status="ok">
		<scrobbles accepted="1" ignored="0">
			<scrobble><track>T</track><artist>A</artist><ignoredMessage code="0"></ignoredMessage></scrobble>
		</scrobbles>
	</lfm>`)

	result, err := submitter.Submit(context.Background(), "sk",
		ytmusic.TrackEntry{Title: "T", Artist: "A", Album: "L"}, time.Now())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Status != SubmitAccepted {
		t.Errorf("status = %v, want accepted", result.Status)
	}
}

func TestSubmitIgnoredCarriesReason(t *testing.T) {
	submitter := newTestSubmitter(t, `<lfm status="ok">
		<scrobbles accepted="0" ignored="1">
			<scrobble><track>T</track><artist>A</artist><ignoredMessage code="1">Artist was ignored</ignoredMessage></scrobble>
		</scrobbles>
	</lfm>`)

	result, err := submitter.Submit(context.Background(), "sk",
		ytmusic.TrackEntry{Title: "T", Artist: "A"}, time.Now())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Status != SubmitIgnored {
		t.Errorf("status = %v, want ignored", result.Status)
	}
	if result.IgnoredReason != "Artist was ignored" {
		t.Errorf("reason = %q", result.IgnoredReason)
	}
}

func TestSubmitNeitherAcceptedNorIgnored(t *testing.T) {
	submitter := newTestSubmitter(t, `<lfm status="ok">
		<scrobbles accepted="0" ignored="0"></scrobbles>
	</lfm>`)

	_, err := submitter.Submit(context.Background(), "sk",
		ytmusic.TrackEntry{Title: "T", Artist: "A"}, time.Now())
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("err = %v, want *SubmissionError", err)
	}
	if subErr.Title != "T" || subErr.Artist != "A" {
		t.Errorf("error identifies %q/%q", subErr.Title, subErr.Artist)
	}
}

func TestSubmitAPIErrorUnwraps(t *testing.T) {
	submitter := newTestSubmitter(t, `<lfm status="failed">
		<error code="9">Invalid session key</error>
	</lfm>`)

	_, err := submitter.Submit(context.Background(), "sk",
		ytmusic.TrackEntry{Title: "T", Artist: "A"}, time.Now())

	var lfmErr *lastfm.Error
	if !errors.As(err, &lfmErr) {
		t.Fatalf("err = %v, want wrapped *lastfm.Error", err)
	}
	if !lfmErr.AuthFailure() {
		t.Error("code 9 must stay classifiable through the wrap")
	}
	if got := ClassifyFailure(err); got != store.FailureAuth {
		t.Errorf("ClassifyFailure = %s, want AUTH", got)
	}
}
