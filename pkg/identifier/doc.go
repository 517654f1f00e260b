// Package identifier implements X-Road identifiers and their external wire
// form: slash-separated, percent-encoded segments that round-trip exactly.
package identifier
