package httpcache

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// GenerateETag returns a weak validator for payload. The same payload is sent
// identity, gzip, zstd or deflate encoded, and those bodies are not byte-equal.
// Equal payloads always yield equal tags.
func GenerateETag(payload []byte) string {
	return fmt.Sprintf(`W/"%016x-%x"`, xxhash.Sum64(payload), len(payload))
}

// CheckETag reports whether the request's If-None-Match already names etag.
// Comparison is weak, as required for If-None-Match. Malformed entries never match.
func CheckETag(r *http.Request, etag string) bool {
	header := r.Header.Get("If-None-Match")
	if header == "" || etag == "" {
		return false
	}

	want := opaqueTag(etag)
	if want == "" {
		return false
	}

	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if tag := opaqueTag(candidate); tag != "" && tag == want {
			return true
		}
	}
	return false
}

// opaqueTag strips the weak prefix and returns the quoted tag, or "" if malformed.
func opaqueTag(s string) string {
	s = strings.TrimPrefix(s, "W/")
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ""
	}
	if strings.ContainsRune(s[1:len(s)-1], '"') {
		return ""
	}
	return s
}

// WellFormedIfNoneMatch reports whether every entry of an If-None-Match value
// is "*" or a quoted entity tag.
func WellFormedIfNoneMatch(header string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate != "*" && opaqueTag(candidate) == "" {
			return false
		}
	}
	return true
}
