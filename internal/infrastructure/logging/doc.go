// Package logging provides structured logging for Intravision Core.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting broker", "port", 50555)
//	logger.Error("failed to connect", "error", err)
//
// Never log secrets such as the MQTT password or the InfluxDB token.
package logging
