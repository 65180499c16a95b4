// Package httpcache writes cacheable JSON responses: content fingerprints for
// conditional requests, Accept-Encoding negotiation with size-gated
// compression, and Cache-Control directives split between browser and CDN.
//
// # Conditional Requests
//
//	etag := httpcache.GenerateETag(body)
//	if httpcache.CheckETag(r, etag) {
//		httpcache.WriteNotModified(w, policy, etag)
//		return
//	}
//	httpcache.WriteResponse(w, r, http.StatusOK, body, policy, etag)
//
// A 304 never serializes or compresses anything. A malformed If-None-Match is
// treated as "no match" and the full response is sent.
//
// # Compression
//
// Bodies smaller than Policy.CompressionThreshold are sent as-is. Larger bodies
// are encoded with the best encoding the client accepts, preferring zstd, then
// gzip, then deflate. Cache-Control, ETag and Vary are set either way.
package httpcache
