// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package exposes the execution engine to MCP clients through
// the mark3labs/mcp-go library. It registers two tools: execute_code, which
// runs a snippet and returns the JSON-encoded execution result, and
// list_languages, which reports the accepted language tags.
//
// The server supports both stdio and streamable HTTP transports as configured
// by the application configuration.
//
// Usage:
//
//	server, err := mcpserver.New(cfg, logger, executor)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver
