// Package transport implements the HTTPS client layer shared by the
// configuration fetcher and the metadata client: TLS 1.2/1.3, optional
// mutual-TLS client certificates, optional CA bundles and per-call timeouts.
//
// Responses are returned raw, including error statuses; the calling layer
// decides whether a non-2xx body is a protocol fault or a format error.
package transport
