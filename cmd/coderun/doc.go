// Package main is the entry point for the coderun execution server.
//
// coderun runs short code snippets in JavaScript (in-process), Python,
// Node.js, Java, C++ and Go and reports a uniform result. The serve command
// exposes the engine over MCP (stdio or streamable HTTP) or a REST API,
// chosen by server.transport. The run command executes a single file from
// the command line and prints the JSON result.
//
// The application uses Uber's fx framework for dependency injection and lifecycle
// management, with zap for structured logging, viper for configuration and
// cobra for the command line.
package main
