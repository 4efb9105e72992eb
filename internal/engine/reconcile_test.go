package engine

import (
	"testing"
	"time"

	"github.com/ytmirror/ytmirror/internal/store"
	"github.com/ytmirror/ytmirror/internal/ytmusic"
)

func entry(title, artist, album string) ytmusic.TrackEntry {
	return ytmusic.TrackEntry{Title: title, Artist: artist, Album: album, RecencyMarker: "Today"}
}

func record(title, artist, album string, pos, maxPos int) store.TrackRecord {
	return store.TrackRecord{Title: title, Artist: artist, Album: album, ArrayPosition: pos, MaxArrayPosition: maxPos}
}

func TestReconcileFirstRunScrobblesNothing(t *testing.T) {
	today := []ytmusic.TrackEntry{
		entry("A", "X", "1"),
		entry("B", "Y", "2"),
		entry("C", "Z", "3"),
	}

	plan := Reconcile(today, nil, time.Now())

	if !plan.Initialized {
		t.Fatal("expected initialization pass for empty prior set")
	}
	for i, action := range plan.Actions {
		if action.Scrobble {
			t.Errorf("action %d: first run must not scrobble", i)
		}
		if action.Record.ArrayPosition != i+1 {
			t.Errorf("action %d: ArrayPosition = %d, want %d", i, action.Record.ArrayPosition, i+1)
		}
		if action.Record.MaxArrayPosition != i+1 {
			t.Errorf("action %d: MaxArrayPosition = %d, want %d", i, action.Record.MaxArrayPosition, i+1)
		}
	}
}

func TestReconcileNewTrack(t *testing.T) {
	today := []ytmusic.TrackEntry{
		entry("New Song", "New Artist", "New Album"),
		entry("Old Song", "Old Artist", "Old Album"),
	}
	prior := []store.TrackRecord{
		record("Old Song", "Old Artist", "Old Album", 1, 1),
	}

	plan := Reconcile(today, prior, time.Now())

	if plan.Initialized {
		t.Fatal("unexpected initialization pass")
	}
	if !plan.Actions[0].Scrobble {
		t.Error("unseen track must be scrobbled")
	}
	if plan.Actions[0].Replay {
		t.Error("unseen track is not a replay")
	}
	if plan.Actions[0].Record.ArrayPosition != 1 || plan.Actions[0].Record.MaxArrayPosition != 1 {
		t.Errorf("record positions = %d/%d, want 1/1",
			plan.Actions[0].Record.ArrayPosition, plan.Actions[0].Record.MaxArrayPosition)
	}
}

func TestReconcilePositionComparison(t *testing.T) {
	tests := []struct {
		name         string
		position     int // 1-based ordinal of the entry in today's list
		prior        store.TrackRecord
		wantScrobble bool
	}{
		{
			name:         "sank in the list, not a new play",
			position:     40,
			prior:        record("S", "A", "L", 28, 28),
			wantScrobble: false,
		},
		{
			name:         "climbed to the top, played again",
			position:     1,
			prior:        record("S", "A", "L", 50, 50),
			wantScrobble: true,
		},
		{
			name:         "same position, not a new play",
			position:     7,
			prior:        record("S", "A", "L", 7, 7),
			wantScrobble: false,
		},
		{
			name:         "climbed by one",
			position:     6,
			prior:        record("S", "A", "L", 7, 7),
			wantScrobble: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Pad the today-list so the track under test lands at the
			// wanted ordinal.
			today := make([]ytmusic.TrackEntry, 0, tt.position)
			for i := 1; i < tt.position; i++ {
				today = append(today, entry("pad", "pad", string(rune('a'+i))))
			}
			today = append(today, entry("S", "A", "L"))

			// Give the padding entries records too so they do not count
			// as new tracks.
			prior := []store.TrackRecord{tt.prior}
			for _, e := range today[:len(today)-1] {
				prior = append(prior, record(e.Title, e.Artist, e.Album, 1, 1))
			}

			plan := Reconcile(today, prior, time.Now())
			got := plan.Actions[len(plan.Actions)-1]
			if got.Position != tt.position {
				t.Fatalf("position = %d, want %d", got.Position, tt.position)
			}
			if got.Scrobble != tt.wantScrobble {
				t.Errorf("Scrobble = %t, want %t", got.Scrobble, tt.wantScrobble)
			}
		})
	}
}

// The comparison must use the position persisted at the last scrobble, not
// the worst-ever position. Ranks from sessions with different list lengths
// are not comparable, and an engine comparing against MaxArrayPosition
// re-scrobbles tracks that merely sank in a longer list.
func TestReconcileIgnoresMaxArrayPosition(t *testing.T) {
	// Current ordinal 40 vs ArrayPosition 28: no replay, even though a
	// comparison against MaxArrayPosition 127 would claim one.
	today := make([]ytmusic.TrackEntry, 0, 40)
	prior := make([]store.TrackRecord, 0, 40)
	for i := 1; i < 40; i++ {
		e := entry("pad", "pad", string(rune('a'+i)))
		today = append(today, e)
		prior = append(prior, record(e.Title, e.Artist, e.Album, 1, 1))
	}
	today = append(today, entry("S", "A", "L"))
	prior = append(prior, record("S", "A", "L", 28, 127))

	plan := Reconcile(today, prior, time.Now())
	got := plan.Actions[len(plan.Actions)-1]
	if got.Scrobble {
		t.Error("engine compared against MaxArrayPosition: 40 >= 28 must not scrobble")
	}

	// And the inverse: ArrayPosition says replay even when
	// MaxArrayPosition would say otherwise.
	plan = Reconcile(
		[]ytmusic.TrackEntry{entry("S", "A", "L")},
		[]store.TrackRecord{record("S", "A", "L", 50, 1)},
		time.Now(),
	)
	if !plan.Actions[0].Scrobble {
		t.Error("1 < ArrayPosition 50 must scrobble regardless of MaxArrayPosition")
	}
}

func TestReconcileReplayUpdatesRecord(t *testing.T) {
	now := time.Now()
	plan := Reconcile(
		[]ytmusic.TrackEntry{entry("S", "A", "L")},
		[]store.TrackRecord{record("S", "A", "L", 50, 60)},
		now,
	)

	action := plan.Actions[0]
	if !action.Scrobble || !action.Replay {
		t.Fatalf("expected replay scrobble, got %+v", action)
	}
	if action.Record.ArrayPosition != 1 {
		t.Errorf("ArrayPosition = %d, want 1", action.Record.ArrayPosition)
	}
	if action.Record.MaxArrayPosition != 60 {
		t.Errorf("MaxArrayPosition = %d, want 60 (worst-ever is kept)", action.Record.MaxArrayPosition)
	}
	if !action.Record.AddedAt.Equal(now) {
		t.Errorf("AddedAt = %v, want refresh to %v", action.Record.AddedAt, now)
	}
}

func TestReconcileOrderPreserved(t *testing.T) {
	today := []ytmusic.TrackEntry{
		entry("first", "a", "1"),
		entry("second", "b", "2"),
		entry("third", "c", "3"),
	}
	plan := Reconcile(today, []store.TrackRecord{record("x", "y", "z", 1, 1)}, time.Now())

	for i, action := range plan.Actions {
		if action.Entry != today[i] {
			t.Errorf("action %d out of order: %+v", i, action.Entry)
		}
		if action.Position != i+1 {
			t.Errorf("action %d position = %d, want %d", i, action.Position, i+1)
		}
	}
}
