// Package logging provides structured logging for WriterBot.
//
// It wraps Go's standard log/slog package so every component logs with the
// same handler, level, and default fields (service, version).
//
// Logging is configured via the logging section of the settings file:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("connected to gateway", "guilds", 12)
//	logger.Component("bot").Error("command failed", "error", err)
//
// Never log the bot token or database password.
package logging
