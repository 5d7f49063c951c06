// Package logging provides structured logging for the Treeow daemon.
//
// It wraps log/slog with configuration-driven handler selection (JSON or
// text), level filtering and default service/version fields. Component
// loggers are derived with With:
//
//	log := logging.New(cfg.Logging, version)
//	engineLog := log.With("component", "engine")
package logging
