package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/coderun/config"
	"github.com/isdmx/coderun/sandbox"
)

// Tool names exposed by the server
const (
	ToolExecuteCode   = "execute_code"
	ToolListLanguages = "list_languages"
)

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	executor  sandbox.Executor
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, executor sandbox.Executor) (*MCPServer, error) {
	s := &MCPServer{
		config:   cfg,
		logger:   logger,
		executor: executor,
	}

	logger.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.Int("sandbox.timeout_ms", cfg.Sandbox.TimeoutMs),
		zap.String("sandbox.locale", cfg.Sandbox.Locale),
		zap.Strings("languages", executor.Languages()),
	)

	s.mcpServer = server.NewMCPServer("coderun", "A multi-language code execution server")

	s.registerExecuteCodeTool()
	s.registerListLanguagesTool()

	return s, nil
}

func (s *MCPServer) registerExecuteCodeTool() {
	tool := mcp.Tool{
		Name:        ToolExecuteCode,
		Description: "Run a code snippet and return its result, captured output and execution time",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to run",
				},
				"language": map[string]any{
					"type":        "string",
					"description": "Language tag",
					"enum":        s.executor.Languages(),
				},
				"input": map[string]any{
					"type":        "string",
					"description": "Text fed to the program's standard input (ignored for javascript)",
				},
			},
			Required: []string{"code", "language"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleExecuteCode)
}

func (s *MCPServer) registerListLanguagesTool() {
	tool := mcp.Tool{
		Name:        ToolListLanguages,
		Description: "List the language tags execute_code accepts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}

	s.mcpServer.AddTool(tool, s.handleListLanguages)
}

// handleExecuteCode handles the execute_code tool. Missing arguments are
// passed through so the executor reports them in the usual result shape.
func (s *MCPServer) handleExecuteCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := sandbox.ExecutionRequest{
		Code:     request.GetString("code", ""),
		Language: request.GetString("language", ""),
		Input:    request.GetString("input", ""),
	}

	s.logger.Info("code execution requested", zap.String("language", req.Language))

	result := s.executor.Execute(ctx, req)
	if !result.Success {
		s.logger.Info("code execution failed",
			zap.String("language", req.Language),
			zap.Error(result.Err))
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("failed to encode result", zap.Error(err))
		result = sandbox.ExecutionResult{
			Success: false,
			Result:  "failed to encode result: " + err.Error(),
			Output:  []string{},
		}
		if payload, err = json.Marshal(result); err != nil {
			return nil, fmt.Errorf("failed to encode result: %w", err)
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(payload),
			},
		},
		IsError: !result.Success,
	}, nil
}

func (s *MCPServer) handleListLanguages(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strings.Join(s.executor.Languages(), "\n")), nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
