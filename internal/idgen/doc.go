// Package idgen wraps the UUID generator so task identifiers can be stubbed
// in tests. It lives under `internal` because callers should treat the
// generated identifiers as opaque strings.
package idgen
