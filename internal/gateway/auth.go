package gateway

import (
	"crypto/subtle"
	"net/http"
)

// apiKeyHeader carries the shared secret on every protected request.
const apiKeyHeader = "x-api-key"

// authorized reports whether r carries the configured API key. Browsers
// cannot set headers on a websocket upgrade, so the key may also come as
// the "key" query parameter. An empty configured key disables the check.
func authorized(r *http.Request, apiKey string) bool {
	if apiKey == "" {
		return true
	}
	got := r.Header.Get(apiKeyHeader)
	if got == "" {
		got = r.URL.Query().Get("key")
	}
	if got == "" {
		return false
	}
	return safeEqual(got, apiKey)
}

// safeEqual performs a constant-time string comparison to prevent timing attacks.
// It avoids early-return on length mismatch to prevent leaking secret length via timing.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
