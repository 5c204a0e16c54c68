// Package tracing is a thin wrapper around OpenTelemetry so the rest of the
// code base can emit spans without importing the upstream packages. All
// instrumentation is kept in a separate package so that applications which do
// not require tracing can exclude it from their build.
package tracing
