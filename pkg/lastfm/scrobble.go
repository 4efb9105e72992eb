package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
)

// MaxBatchSize is the most scrobbles Last.fm accepts in one request.
const MaxBatchSize = 50

// Track identifies a track for scrobbling.
type Track struct {
	Artist      string // Required
	Track       string // Required
	Album       string // Optional
	AlbumArtist string // Optional
	Duration    int    // Optional, seconds
	MBTrackID   string // Optional, MusicBrainz id
}

// Scrobble pairs a track with the time it was played.
type Scrobble struct {
	Track     Track
	Timestamp time.Time
}

// IgnoredMessage is the provider's reason for ignoring a scrobble.
type IgnoredMessage struct {
	Code int
	Text string
}

// ScrobbledTrack is the per-submission echo in a scrobble response.
type ScrobbledTrack struct {
	Artist         string
	Track          string
	Album          string
	Timestamp      int64
	IgnoredMessage IgnoredMessage
}

// ScrobbleResponse is the parsed result of track.scrobble. For a single
// submission Accepted and Ignored are each "0" or "1" on the wire; they are
// reported here as the provider gave them.
type ScrobbleResponse struct {
	Accepted  int
	Ignored   int
	Scrobbles []ScrobbledTrack
}

// Scrobble submits a single listening event on behalf of the session.
func (c *Client) Scrobble(ctx context.Context, sessionKey string, track Track, timestamp time.Time) (*ScrobbleResponse, error) {
	return c.ScrobbleBatch(ctx, sessionKey, []Scrobble{{Track: track, Timestamp: timestamp}})
}

// ScrobbleBatch submits up to MaxBatchSize scrobbles in one request; any
// excess is truncated.
func (c *Client) ScrobbleBatch(ctx context.Context, sessionKey string, scrobbles []Scrobble) (*ScrobbleResponse, error) {
	if sessionKey == "" {
		return nil, ErrNoSessionKey
	}
	if len(scrobbles) == 0 {
		return &ScrobbleResponse{}, nil
	}
	if len(scrobbles) > MaxBatchSize {
		scrobbles = scrobbles[:MaxBatchSize]
	}

	params := map[string]string{"sk": sessionKey}
	for i, s := range scrobbles {
		idx := fmt.Sprintf("[%d]", i)
		params["artist"+idx] = s.Track.Artist
		params["track"+idx] = s.Track.Track
		params["timestamp"+idx] = strconv.FormatInt(s.Timestamp.Unix(), 10)
		if s.Track.Album != "" {
			params["album"+idx] = s.Track.Album
		}
		if s.Track.AlbumArtist != "" {
			params["albumArtist"+idx] = s.Track.AlbumArtist
		}
		if s.Track.Duration > 0 {
			params["duration"+idx] = strconv.Itoa(s.Track.Duration)
		}
		if s.Track.MBTrackID != "" {
			params["mbid"+idx] = s.Track.MBTrackID
		}
	}

	inner, err := c.call(ctx, "track.scrobble", params)
	if err != nil {
		return nil, err
	}

	resp, err := unmarshalScrobbles(inner)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse scrobble response: %w", err)
	}
	return resp, nil
}

// scrobblesXML mirrors the wire shape of the track.scrobble inner XML. The
// accepted/ignored attributes arrive as strings.
type scrobblesXML struct {
	Scrobbles struct {
		Accepted  string `xml:"accepted,attr"`
		Ignored   string `xml:"ignored,attr"`
		Scrobbles []struct {
			Artist         string `xml:"artist"`
			Track          string `xml:"track"`
			Album          string `xml:"album"`
			Timestamp      string `xml:"timestamp"`
			IgnoredMessage struct {
				Code int    `xml:"code,attr"`
				Text string `xml:",chardata"`
			} `xml:"ignoredMessage"`
		} `xml:"scrobble"`
	} `xml:"scrobbles"`
}

func unmarshalScrobbles(data []byte) (*ScrobbleResponse, error) {
	// The transport strips the <lfm> root; re-wrap so the decoder has one.
	wrapped := []byte("<root>" + string(data) + "</root>")

	var raw scrobblesXML
	if err := xml.Unmarshal(wrapped, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scrobble response: %w", err)
	}

	result := &ScrobbleResponse{
		Accepted:  atoiOrZero(raw.Scrobbles.Accepted),
		Ignored:   atoiOrZero(raw.Scrobbles.Ignored),
		Scrobbles: make([]ScrobbledTrack, len(raw.Scrobbles.Scrobbles)),
	}
	for i, s := range raw.Scrobbles.Scrobbles {
		var ts int64
		if s.Timestamp != "" {
			ts, _ = strconv.ParseInt(s.Timestamp, 10, 64)
		}
		result.Scrobbles[i] = ScrobbledTrack{
			Artist:    s.Artist,
			Track:     s.Track,
			Album:     s.Album,
			Timestamp: ts,
			IgnoredMessage: IgnoredMessage{
				Code: s.IgnoredMessage.Code,
				Text: s.IgnoredMessage.Text,
			},
		}
	}
	return result, nil
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
