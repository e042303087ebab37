// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for human readability
//
// Every component receives a *Logger at construction; there is no package
// level logger. Stage failures, export failures and scrape errors all
// surface here, as the process has no other user-facing error channel.
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	logger.Info("Sidecar starting", zap.String("backend", addr))
//	logger.Warn("Stage failed", zap.String("stage", "connect"), zap.Error(err))
package logging
