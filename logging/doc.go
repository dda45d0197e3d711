// Package logging provides a minimal logging interface and adapters for chatcore.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the engine, prober and enricher use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ChatLogger with conversation/component context and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	cc := chatcore.New(func(o *chatcore.Options) { o.Logger = logger })
package logging
