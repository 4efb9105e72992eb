package ytmusic

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

// historyPayload builds a minimal renderer tree with the given shelves.
func historyPayload(t *testing.T, shelves []map[string]any) []byte {
	t.Helper()
	sections := make([]any, 0, len(shelves))
	for _, shelf := range shelves {
		sections = append(sections, map[string]any{"musicShelfRenderer": shelf})
	}
	root := map[string]any{
		"contents": map[string]any{
			"singleColumnBrowseResultsRenderer": map[string]any{
				"tabs": []any{
					map[string]any{
						"tabRenderer": map[string]any{
							"content": map[string]any{
								"sectionListRenderer": map[string]any{
									"contents": sections,
								},
							},
						},
					},
				},
			},
		},
	}
	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("failed to marshal fixture: %v", err)
	}
	return data
}

func shelfWith(title string, items ...map[string]any) map[string]any {
	contents := make([]any, 0, len(items))
	for _, item := range items {
		contents = append(contents, map[string]any{"musicResponsiveListItemRenderer": item})
	}
	return map[string]any{
		"title":    map[string]any{"runs": []any{map[string]any{"text": title}}},
		"contents": contents,
	}
}

func flexColumn(text string, nav map[string]any) map[string]any {
	run := map[string]any{"text": text}
	if nav != nil {
		run["navigationEndpoint"] = nav
	}
	return map[string]any{
		"musicResponsiveListItemFlexColumnRenderer": map[string]any{
			"text": map[string]any{"runs": []any{run}},
		},
	}
}

func watchNav(videoID string) map[string]any {
	return map[string]any{"watchEndpoint": map[string]any{"videoId": videoID}}
}

func browseNav(pageType string) map[string]any {
	return map[string]any{
		"browseEndpoint": map[string]any{
			"browseEndpointContextSupportedConfigs": map[string]any{
				"browseEndpointContextMusicConfig": map[string]any{"pageType": pageType},
			},
		},
	}
}

func trackItem(title, artist, album string) map[string]any {
	cols := []any{
		flexColumn(title, watchNav("vid-"+title)),
		flexColumn(artist, browseNav(pageTypeArtist)),
	}
	if album != "" {
		cols = append(cols, flexColumn(album, browseNav(pageTypeAlbum)))
	}
	return map[string]any{"flexColumns": cols}
}

func TestParseHistory(t *testing.T) {
	payload := historyPayload(t, []map[string]any{
		shelfWith("Today",
			trackItem("Song A", "Artist A", "Album A"),
			trackItem("Song B", "Artist B", ""),
		),
		shelfWith("Yesterday",
			trackItem("Song C", "Artist C", "Album C"),
		),
	})

	entries, err := ParseHistory([][]byte{payload}, zerolog.Nop())
	if err != nil {
		t.Fatalf("ParseHistory failed: %v", err)
	}

	want := []TrackEntry{
		{Title: "Song A", Artist: "Artist A", Album: "Album A", RecencyMarker: "Today"},
		{Title: "Song B", Artist: "Artist B", Album: "Song B", RecencyMarker: "Today"},
		{Title: "Song C", Artist: "Artist C", Album: "Album C", RecencyMarker: "Yesterday"},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i] != w {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], w)
		}
	}
}

func TestParseHistoryAlbumFallsBackToTitle(t *testing.T) {
	payload := historyPayload(t, []map[string]any{
		shelfWith("Today", trackItem("Single", "Some Artist", "")),
	})

	entries, err := ParseHistory([][]byte{payload}, zerolog.Nop())
	if err != nil {
		t.Fatalf("ParseHistory failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Album != "Single" {
		t.Errorf("Album = %q, want fallback to title %q", entries[0].Album, "Single")
	}
}

func TestParseHistorySkipsNonTrackItems(t *testing.T) {
	// An item with text but no watch or artist navigation is not a
	// playable track.
	filler := map[string]any{
		"flexColumns": []any{flexColumn("Some text", nil)},
	}
	payload := historyPayload(t, []map[string]any{
		shelfWith("Today",
			filler,
			trackItem("Real Song", "Real Artist", "Real Album"),
		),
	})

	entries, err := ParseHistory([][]byte{payload}, zerolog.Nop())
	if err != nil {
		t.Fatalf("ParseHistory failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Title != "Real Song" {
		t.Errorf("Title = %q, want %q", entries[0].Title, "Real Song")
	}
}

func TestParseHistoryMultiplePayloads(t *testing.T) {
	// Only one payload carries the history section; the others are
	// unrelated push calls and must be skipped without error.
	other, _ := json.Marshal(map[string]any{"responseContext": map[string]any{}})
	payload := historyPayload(t, []map[string]any{
		shelfWith("Today", trackItem("Song", "Artist", "Album")),
	})

	entries, err := ParseHistory([][]byte{other, payload, []byte("not json")}, zerolog.Nop())
	if err != nil {
		t.Fatalf("ParseHistory failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestParseHistoryEmptyShelves(t *testing.T) {
	// A resolvable renderer path with no items is not an error; the
	// caller decides what an empty history means.
	payload := historyPayload(t, nil)

	entries, err := ParseHistory([][]byte{payload}, zerolog.Nop())
	if err != nil {
		t.Fatalf("ParseHistory failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected 0 entries, got %d", len(entries))
	}
}

func TestParseHistoryError(t *testing.T) {
	tests := []struct {
		name        string
		payloads    [][]byte
		wantMessage string
	}{
		{
			name:        "no payloads",
			payloads:    nil,
			wantMessage: "No results found in YouTube Music response (has contents: false, has browseResults: false, has tabs: false)",
		},
		{
			name:        "unrelated json",
			payloads:    [][]byte{[]byte(`{"responseContext":{}}`)},
			wantMessage: "No results found in YouTube Music response (has contents: false, has browseResults: false, has tabs: false)",
		},
		{
			name:        "contents without browse results",
			payloads:    [][]byte{[]byte(`{"contents":{"somethingElse":{}}}`)},
			wantMessage: "No results found in YouTube Music response (has contents: true, has browseResults: false, has tabs: false)",
		},
		{
			name:        "browse results with empty tabs",
			payloads:    [][]byte{[]byte(`{"contents":{"singleColumnBrowseResultsRenderer":{"tabs":[]}}}`)},
			wantMessage: "No results found in YouTube Music response (has contents: true, has browseResults: true, has tabs: true)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHistory(tt.payloads, zerolog.Nop())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if err.Error() != tt.wantMessage {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantMessage)
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
		})
	}
}
