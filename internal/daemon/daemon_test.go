package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytmirror/ytmirror/internal/engine"
	"github.com/ytmirror/ytmirror/internal/notify"
	"github.com/ytmirror/ytmirror/internal/store"
	"github.com/ytmirror/ytmirror/internal/ytmusic"
)

type blockingFetcher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (f *blockingFetcher) FetchHistoryPage(ctx context.Context, _ string) (string, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", &ytmusic.FetchError{StatusCode: 503}
}

type noopSubmitter struct{}

func (noopSubmitter) Submit(context.Context, string, ytmusic.TrackEntry, time.Time) (engine.SubmitResult, error) {
	return engine.SubmitResult{Status: engine.SubmitAccepted}, nil
}

func newTestScheduler(t *testing.T, fetcher engine.HistoryFetcher) (*Scheduler, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	health := engine.NewHealthTracker(st, &notify.LogDispatcher{}, nil, logger)
	pipeline := engine.NewPipeline(fetcher, noopSubmitter{}, st, health, nil, logger)
	return New(Config{}, st, pipeline, logger), st
}

func TestSweepRunsActiveUsersOnly(t *testing.T) {
	fetcher := &blockingFetcher{}
	s, st := newTestScheduler(t, fetcher)
	ctx := context.Background()

	active, _ := st.CreateUser(ctx, "a@example.com", "c", "k")
	inactive, _ := st.CreateUser(ctx, "b@example.com", "c", "k")
	if err := st.SetActive(ctx, inactive, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	s.sweep(ctx)

	if got := fetcher.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1 (inactive user swept)", got)
	}

	// The failing run must land in the active user's health state.
	h, err := st.GetHealthState(ctx, active)
	if err != nil {
		t.Fatalf("GetHealthState: %v", err)
	}
	if h.ConsecutiveFailures != 1 || h.LastFailureType != store.FailureNetwork {
		t.Errorf("health = %+v, want one NETWORK failure", h)
	}
}

func TestTryAcquireBlocksConcurrentRuns(t *testing.T) {
	s, _ := newTestScheduler(t, &blockingFetcher{})

	if !s.tryAcquire(1) {
		t.Fatal("first acquire failed")
	}
	if s.tryAcquire(1) {
		t.Error("second acquire succeeded while run in flight")
	}
	if !s.tryAcquire(2) {
		t.Error("acquire for a different user blocked")
	}

	s.release(1)
	if !s.tryAcquire(1) {
		t.Error("acquire failed after release")
	}
}

func TestSweepRespectsContextCancellation(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{})}
	s, st := newTestScheduler(t, fetcher)

	if _, err := st.CreateUser(context.Background(), "a@example.com", "c", "k"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.sweep(ctx)
		close(done)
	}()

	// Let the run start, then cancel; the sweep must unwind without the
	// fetcher ever being released.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not return after cancellation")
	}
}

func TestDefaultsApplied(t *testing.T) {
	s, _ := newTestScheduler(t, &blockingFetcher{})

	if s.config.Interval != 5*time.Minute {
		t.Errorf("Interval = %v", s.config.Interval)
	}
	if s.config.RunTimeout != 2*time.Minute {
		t.Errorf("RunTimeout = %v", s.config.RunTimeout)
	}
	if s.config.Concurrency != 4 {
		t.Errorf("Concurrency = %d", s.config.Concurrency)
	}
	if s.config.RetentionWindow != 24*time.Hour {
		t.Errorf("RetentionWindow = %v", s.config.RetentionWindow)
	}
}
