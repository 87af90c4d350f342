// Package main is the entry point for the framebridge host process.
//
// The host owns the outer window. It reads a frame manifest, starts one
// bridge Host per frame, and accepts guest processes over WebSocket.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -manifest frames.yaml -port 8000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
