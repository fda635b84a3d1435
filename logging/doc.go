// Package logging provides a minimal logging interface and adapters for actionmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the catalog, orchestrator and channel adapters use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - StructuredLogger with tenant / channel scoping and action / model helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "json"})
//	mesh := actionmesh.New(func(o *actionmesh.Options) { o.Logger = logger })
package logging
