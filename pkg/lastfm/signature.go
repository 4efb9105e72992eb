package lastfm

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
)

// calculateSignature generates the api_sig value for a request:
// parameter keys sorted ascending, concatenated as key1value1key2value2...,
// the shared secret appended, and the MD5 digest of the UTF-8 bytes
// hex-encoded. Every authenticated request carries this signature.
func calculateSignature(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sigPlain string
	for _, k := range keys {
		sigPlain += k + params[k]
	}
	sigPlain += secret

	sum := md5.Sum([]byte(sigPlain))
	return hex.EncodeToString(sum[:])
}
