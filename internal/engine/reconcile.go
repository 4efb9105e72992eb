package engine

import (
	"time"

	"github.com/ytmirror/ytmirror/internal/store"
	"github.com/ytmirror/ytmirror/internal/ytmusic"
)

// Action is the reconciliation decision for one today-list entry.
type Action struct {
	Entry    ytmusic.TrackEntry
	Position int  // 1-based rank in the today-list
	Scrobble bool // submit a scrobble for this entry
	Replay   bool // entry climbed the list since last observed
	Record   store.TrackRecord
}

// Plan is the outcome of reconciling a fetched today-list against the
// user's persisted records.
type Plan struct {
	// Initialized is set on a user's first ever run: positions are
	// recorded for bookkeeping but nothing is scrobbled, so connecting an
	// account does not dump the existing history as a scrobble backlog.
	Initialized bool
	Actions     []Action
}

// Reconcile decides, per today-list entry, whether it represents a new
// listening event. Entries must be in the provider's order (index 0 = most
// recently played); the 1-based ordinal is the only recency signal the
// provider exposes for "today".
//
// A track with no persisted record is new. A track whose current ordinal is
// strictly lower than the position persisted at its last scrobble climbed
// back toward the top, which only happens when it was played again. The
// comparison uses ArrayPosition alone: MaxArrayPosition is the worst rank
// ever seen across sessions with different list lengths, so raw positions
// against it are not comparable.
func Reconcile(today []ytmusic.TrackEntry, prior []store.TrackRecord, now time.Time) Plan {
	byKey := make(map[store.TrackKey]store.TrackRecord, len(prior))
	for _, r := range prior {
		byKey[r.Key()] = r
	}

	plan := Plan{
		Initialized: len(prior) == 0,
		Actions:     make([]Action, 0, len(today)),
	}

	for i, entry := range today {
		p := i + 1
		action := Action{Entry: entry, Position: p}
		key := store.TrackKey{Title: entry.Title, Artist: entry.Artist, Album: entry.Album}

		existing, known := byKey[key]
		switch {
		case plan.Initialized:
			// Bookkeeping only.
			action.Record = store.TrackRecord{
				Title: entry.Title, Artist: entry.Artist, Album: entry.Album,
				ArrayPosition: p, MaxArrayPosition: p, AddedAt: now,
			}
		case !known:
			action.Scrobble = true
			action.Record = store.TrackRecord{
				Title: entry.Title, Artist: entry.Artist, Album: entry.Album,
				ArrayPosition: p, MaxArrayPosition: p, AddedAt: now,
			}
		case p < existing.ArrayPosition:
			action.Scrobble = true
			action.Replay = true
			action.Record = existing
			action.Record.ArrayPosition = p
			if p > action.Record.MaxArrayPosition {
				action.Record.MaxArrayPosition = p
			}
			action.Record.AddedAt = now
		default:
			// p >= last observed position: not a new play.
		}

		plan.Actions = append(plan.Actions, action)
	}

	return plan
}
