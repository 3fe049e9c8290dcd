// Package logger provides structured logging for artbot.
//
// It wraps zerolog with a small interface supporting:
//   - Multiple log levels (Debug, Info, Warn, Error, Fatal)
//   - Structured logging with fields
//   - Pretty console output with colors
//   - Optional JSON file output with size-based rotation (lumberjack)
//   - A global logger for the CLI, and explicit injection everywhere else
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	logger.Info("artbot starting")
//	logger.WithField("term", "cat").Info("Searching collection")
//
//	log := logger.GetLogger().WithField("component", "picker")
//	log.InfoWithFields("Artwork selected", map[string]interface{}{
//	    "object_id": 436535,
//	    "attempts":  3,
//	})
//
// Tests use NewTestLogger to capture and assert on messages, or
// NewNopLogger to discard them.
package logger
