// Package tracing attaches a trace to every HTTP request the host serves.
//
// Trace and span IDs are prefixed ULIDs from internal/shared/id. A caller
// that sends X-Trace-ID keeps its trace across the request; handlers can add
// tracing.Fields(ctx) to their log entries so a signal posted over HTTP can
// be followed into the bridge logs.
package tracing
