package ytmusic

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

const (
	// DefaultHistoryURL is the internal history page of the provider.
	DefaultHistoryURL = "https://music.youtube.com/history"

	// desktopUserAgent mimics a current desktop Chrome. The history page
	// serves a reduced shell to unrecognized clients.
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Fetcher retrieves the raw history page for a user session.
type Fetcher struct {
	url        string
	httpClient *http.Client
	maxTries   uint
	logger     zerolog.Logger
}

// FetcherConfig holds Fetcher construction options.
type FetcherConfig struct {
	URL        string        // Optional: history page URL (defaults to DefaultHistoryURL)
	Timeout    time.Duration // Optional: per-request timeout (defaults to 30s)
	HTTPClient *http.Client  // Optional: overrides Timeout when set
	MaxTries   uint          // Optional: attempts for transient failures (defaults to 3)
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig, logger zerolog.Logger) *Fetcher {
	historyURL := cfg.URL
	if historyURL == "" {
		historyURL = DefaultHistoryURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxTries := cfg.MaxTries
	if maxTries == 0 {
		maxTries = 3
	}

	return &Fetcher{
		url:        historyURL,
		httpClient: httpClient,
		maxTries:   maxTries,
		logger:     logger.With().Str("component", "fetcher").Logger(),
	}
}

// FetchHistoryPage performs the authenticated GET and returns the page body.
//
// The cookie must already be sanitized (see SanitizeCookie). Transient
// failures (network errors, 5xx) are retried with exponential backoff;
// anything else fails immediately with a *FetchError.
func (f *Fetcher) FetchHistoryPage(ctx context.Context, cookie string) (string, error) {
	body, err := backoff.Retry(ctx, func() (string, error) {
		return f.fetchOnce(ctx, cookie)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(f.maxTries))
	if err != nil {
		return "", err
	}
	return body, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, cookie string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", backoff.Permanent(&FetchError{Err: err})
	}

	req.Header.Set("User-Agent", desktopUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cookie", cookie)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		fetchErr := &FetchError{Err: err}
		if isTransientNetworkError(err) {
			f.logger.Debug().Err(err).Msg("Transient fetch error, will retry")
			return "", fetchErr
		}
		return "", backoff.Permanent(fetchErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		f.logger.Debug().Int("status", resp.StatusCode).Msg("Server error, will retry")
		return "", &FetchError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", backoff.Permanent(&FetchError{StatusCode: resp.StatusCode})
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{Err: err}
	}

	f.logger.Debug().Int("size", len(data)).Msg("Fetched history page")
	return string(data), nil
}

// isTransientNetworkError reports whether a request error is worth retrying.
// Header validation errors (a rejected cookie surfaces as one) are not.
func isTransientNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if urlErr, ok := err.(*url.Error); ok {
		if _, ok := urlErr.Err.(net.Error); ok {
			return true
		}
		return urlErr.Timeout() || urlErr.Temporary()
	}
	if _, ok := err.(net.Error); ok {
		return true
	}
	return false
}
