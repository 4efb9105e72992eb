package ytmusic

import "fmt"

// FetchError reports a failed history page request, either at the transport
// level (Err set) or an unexpected HTTP status (StatusCode set).
type FetchError struct {
	StatusCode int   // HTTP status, 0 for transport failures
	Err        error // underlying transport error, nil for status failures
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("history page request failed: %v", e.Err)
	}
	return fmt.Sprintf("history page returned status %d", e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ExtractionError reports a page with no decodable initialData payloads.
//
// The three diagnostic fields distinguish "got garbage from the wrong host"
// from "got a real page whose shape drifted" and are matched on by the
// failure classifier, so they are carried as structured data rather than
// only as message text.
type ExtractionError struct {
	HTMLSize       int  // page length in characters
	HasInitialData bool // page contains an initialData.push occurrence
	HasBranding    bool // page contains the provider's own branding string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("No initial data found in page (HTML size: %d chars, has initialData.push: %t, has YT Music content: %t)",
		e.HTMLSize, e.HasInitialData, e.HasBranding)
}

// ParseError reports decoded payloads in which the history renderer path
// could not be resolved at all.
type ParseError struct {
	HasContents      bool
	HasBrowseResults bool
	HasTabs          bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("No results found in YouTube Music response (has contents: %t, has browseResults: %t, has tabs: %t)",
		e.HasContents, e.HasBrowseResults, e.HasTabs)
}
