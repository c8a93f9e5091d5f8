// Package logger provides the structured logging interface used across skytally.
//
// It wraps zerolog with a small interface so that packages can accept a
// Logger and tests can swap in NewTestLogger or NewNopLogger:
//   - leveled methods (Debug, Info, Warn, Error, Fatal)
//   - field chaining with WithField, WithFields and WithError
//   - a colored console writer on stderr, or JSON lines when configured
//   - optional append-only file output
//   - a global logger set up once by Initialize
//
// Basic usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("query", "#brasil").Info("collection started")
//
// Components take a Logger explicitly:
//
//	log := logger.GetLogger().WithField("component", "collector")
//	log.InfoWithFields("collection finished", map[string]interface{}{
//	    "items": 1200,
//	    "pages": 12,
//	})
package logger
