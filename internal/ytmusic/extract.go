package ytmusic

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// The history page embeds its data as script calls of the shape
//
//	initialData.push({path: '...', params: ..., data: '\x7b\x22...'});
//
// where the data string is a JSON document with most bytes hex-escaped.
// Extraction is two independent stages: a tolerant lexical scan isolating
// each candidate payload, then a strict escape decoder.
var initialDataRe = regexp.MustCompile(`(?s)initialData\.push\(\{.*?data:\s*'([^']*)'`)

// brandingMarker is a weak signal that we received some YouTube Music page
// at all, as opposed to a login interstitial or the wrong host entirely.
const brandingMarker = "YT Music"

// ExtractInitialData scans the raw page text and returns every decoded
// initialData payload, in page order. Returns *ExtractionError when no
// payload is present.
func ExtractInitialData(page string, logger zerolog.Logger) ([][]byte, error) {
	raw := scanInitialData(page)
	if len(raw) == 0 {
		return nil, &ExtractionError{
			HTMLSize:       len(page),
			HasInitialData: strings.Contains(page, "initialData.push"),
			HasBranding:    strings.Contains(page, brandingMarker),
		}
	}

	payloads := make([][]byte, 0, len(raw))
	for _, r := range raw {
		payloads = append(payloads, decodeHexEscapes(r))
	}

	logger.Debug().Int("payloads", len(payloads)).Msg("Extracted initial data")
	return payloads, nil
}

// scanInitialData returns the raw captured data strings, undecoded.
func scanInitialData(page string) []string {
	matches := initialDataRe.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// decodeHexEscapes interprets \xHH sequences as single raw bytes and passes
// everything else through literally. Malformed escapes (truncated, non-hex
// digits) are left as-is rather than rejected; the JSON decoder downstream
// is the arbiter of validity.
func decodeHexEscapes(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+3 < len(s) && s[i+1] == 'x' {
			hi, okHi := hexDigit(s[i+2])
			lo, okLo := hexDigit(s[i+3])
			if okHi && okLo {
				out = append(out, hi<<4|lo)
				i += 4
				continue
			}
		}
		out = append(out, s[i])
		i++
	}
	return out
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
