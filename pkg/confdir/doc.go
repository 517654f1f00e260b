// Package confdir implements the client side of the global configuration
// download protocol: parsing configuration anchors, fetching the signed
// multi-part configuration bundle from the anchor's trusted sources, and
// verifying it before any content is exposed.
//
// # Bundle format
//
// A bundle is a nested MIME document. The outer multipart/related document
// has two parts: the configuration directory and its detached signature. The
// directory part is itself multipart/mixed: a header-only part carrying the
// directory's Expire-Date and Version, followed by one part per configuration
// file with the headers
//
//	Content-Identifier: SHARED-PARAMETERS; instance='DEV'
//	Content-Location: /V2/20260101120000/shared-params.xml
//	Expire-Date: 2026-09-01T00:00:00Z
//	Hash-Algorithm-Id: http://www.w3.org/2001/04/xmlenc#sha512
//	Digest: <base64 digest of the part content>
//
// and the raw file bytes as body. The signature part declares its algorithm
// in Signature-Algorithm-Id and carries a base64 signature computed over the
// directory part's raw bytes.
//
// # Verification
//
// Verify recomputes every part digest, checks the detached signature against
// the anchor's verification certificates and compares part instances against
// the anchor instance. Expired parts are returned with Stale set rather than
// rejected, so cached bundles remain usable offline. A failure of any other
// check aborts the whole load.
package confdir
