/*
Package monitoring provides Prometheus metrics for bridge peers and the
process that hosts them.

# Overview

Each Metrics value owns its own prometheus.Registry, so several bridges (and
tests) can live in one process without colliding on the default registerer.
All recording methods are safe to call on a nil *Metrics, which lets
components treat metrics as optional.

# Metrics

  - framebridge_signals_received_total{peer,verdict}: gate verdicts
  - framebridge_signals_sent_total{peer,result}: delivered, surface_absent, refused
  - framebridge_effects_run_total{peer,effect}: dispatched handlers
  - framebridge_effects_unknown_total{peer}: signals naming no registered effect
  - framebridge_effect_panics_total{peer,effect}: recovered handler panics
  - framebridge_listeners_active{role}: peers listening on a window
  - framebridge_websocket_connections, framebridge_websocket_frames_total
  - framebridge_http_requests_total, framebridge_http_request_duration_seconds

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
