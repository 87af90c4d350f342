// Package server wires the host process together.
//
// One Server owns a single host window and its event loop, a surface
// document with the manifest's containers, and one bridge.Host per manifest
// frame. Guests connect over the /bridge WebSocket endpoint and are attached
// as the content window of their frame; signals to a guest can also be sent
// from outside the process with POST /frames/:id/signals.
//
// Routes:
//
//	GET  /                     liveness
//	GET  /health               frame counts and uptime
//	GET  /frames               manifest frames with host state and connection
//	POST /frames/:id/signals   send {name, args} to the frame's guest
//	GET  /bridge?frame=:id     guest WebSocket
//	GET  /metrics              Prometheus exposition
//	GET  /metrics/json         counter snapshot
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	m, err := manifest.Load(cfg.Server.Manifest)
//	srv, err := server.New(cfg, m, logging.NewDefault(), monitoring.NewMetrics())
//	defer srv.Close()
//	err = srv.Run(ctx)
package server
