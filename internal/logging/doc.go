// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Bridge components take a plain *zap.Logger and default to a no-op logger,
// so this package is only needed where a process builds its root logger.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info", Service: "bridge-host"})
//	wsLog := logger.Component("ws")
//	wsLog.Info("Guest connected", zap.String("frame", "app"))
package logging
