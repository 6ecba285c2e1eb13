// Package logger provides structured logging capabilities.
//
// The logger package builds the application's zap logger from the logging
// section of the configuration. Logs always go to stderr so they never mix
// with MCP stdio traffic or the JSON printed by the run command.
//
// Usage:
//
//	logger, err := logger.New("production", "info")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger.Info("Application started")
package logger
