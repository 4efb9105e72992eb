package ytmusic

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// TrackEntry is one played track as reported by the history page.
// Reconciliation identity is the (Title, Artist, Album) tuple.
type TrackEntry struct {
	Title         string
	Artist        string
	Album         string
	RecencyMarker string // shelf heading, e.g. "Today" in the account's UI language; "" if absent
}

// Renderer page types distinguishing the browse targets of flex columns.
const (
	pageTypeArtist      = "MUSIC_PAGE_TYPE_ARTIST"
	pageTypeUserChannel = "MUSIC_PAGE_TYPE_USER_CHANNEL"
	pageTypeAlbum       = "MUSIC_PAGE_TYPE_ALBUM"
)

// ParseHistory walks the decoded payloads and yields the flat track list in
// the provider's order (most recently played first), both within and across
// shelves. Payloads that are not valid JSON or do not carry the history
// section are skipped; if no payload resolves the renderer path at all the
// result is a *ParseError carrying the structural diagnostics.
func ParseHistory(payloads [][]byte, logger zerolog.Logger) ([]TrackEntry, error) {
	var entries []TrackEntry
	var diag ParseError
	found := false

	for _, payload := range payloads {
		var root map[string]any
		if err := json.Unmarshal(payload, &root); err != nil {
			logger.Debug().Err(err).Msg("Skipping non-JSON payload")
			continue
		}

		if _, ok := root["contents"]; ok {
			diag.HasContents = true
		}
		browse := mapAt(root, "contents", "singleColumnBrowseResultsRenderer")
		if browse != nil {
			diag.HasBrowseResults = true
		}
		tabs := listAt(browse, "tabs")
		if tabs != nil {
			diag.HasTabs = true
		}

		sections := sectionContents(tabs)
		if sections == nil {
			continue
		}
		found = true

		for _, section := range sections {
			shelf := mapAt(section, "musicShelfRenderer")
			if shelf == nil {
				continue
			}
			marker := firstRunText(shelf["title"])
			for _, item := range listAt(shelf, "contents") {
				renderer := mapAt(item, "musicResponsiveListItemRenderer")
				if renderer == nil {
					continue
				}
				entry, ok := parseTrackItem(renderer)
				if !ok {
					logger.Debug().Str("shelf", marker).Msg("Skipping non-track shelf item")
					continue
				}
				entry.RecencyMarker = marker
				entries = append(entries, entry)
			}
		}
	}

	if !found {
		return nil, &diag
	}

	logger.Debug().Int("tracks", len(entries)).Msg("Parsed history")
	return entries, nil
}

// sectionContents resolves tabs[0] -> tab content -> section list contents.
func sectionContents(tabs []any) []any {
	if len(tabs) == 0 {
		return nil
	}
	tab := mapAt(tabs[0], "tabRenderer", "content", "sectionListRenderer")
	if tab == nil {
		return nil
	}
	return listAt(tab, "contents")
}

// parseTrackItem inspects an item's flex columns for the watch-target column
// (title), the browse-to-artist column and the browse-to-album column. Items
// with neither a watch target nor an artist target are not playable tracks
// (shelf fillers, removed videos) and are skipped.
func parseTrackItem(renderer map[string]any) (TrackEntry, bool) {
	var entry TrackEntry

	for _, col := range listAt(renderer, "flexColumns") {
		run := firstRun(mapAt(col, "musicResponsiveListItemFlexColumnRenderer", "text"))
		if run == nil {
			continue
		}
		text, _ := run["text"].(string)
		if text == "" {
			continue
		}

		nav := mapAt(run, "navigationEndpoint")
		if mapAt(nav, "watchEndpoint") != nil {
			entry.Title = text
			continue
		}
		browseEndpoint := mapAt(nav, "browseEndpoint")
		if browseEndpoint == nil {
			continue
		}
		pageType := stringAt(browseEndpoint,
			"browseEndpointContextSupportedConfigs",
			"browseEndpointContextMusicConfig",
			"pageType")
		switch pageType {
		case pageTypeArtist, pageTypeUserChannel:
			if entry.Artist == "" {
				entry.Artist = text
			}
		case pageTypeAlbum:
			if entry.Album == "" {
				entry.Album = text
			}
		}
	}

	if entry.Title == "" && entry.Artist == "" {
		return TrackEntry{}, false
	}

	// Singles and videos have no album link; fall back to the title so the
	// reconciliation key stays stable across fetches.
	if entry.Album == "" {
		entry.Album = entry.Title
	}

	return entry, true
}
