package ytmusic

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// SanitizeCookie normalizes a raw session cookie into a value that is safe
// to send as an HTTP header. Browsers export cookies with stray unicode
// (ellipses, smart quotes, zero-width characters) that net/http rejects.
//
// Every code point at or above U+0100 is dropped; the Latin-1 range passes
// through untouched. Runs of whitespace collapse to a single space and the
// result is trimmed. The function is idempotent.
func SanitizeCookie(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r < 0x100 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(b.String(), " "))
}
