// Package mcpserver exposes probe operations as MCP tools over stdio so MCP
// clients can drive context-leakage probes without shelling out to the CLI.
package mcpserver

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/probeops/leakprobe/internal/types"
)

const (
	serverName    = "leakprobe-mcp-server"
	serverVersion = "1.0.0"
)

// QueryService runs a single model query with conversation-file context.
type QueryService interface {
	QueryModelWithContext(ctx context.Context, model, prompt string, conversationFiles []string) (string, error)
}

// JudgeService scores a model response for privacy violations.
type JudgeService interface {
	Evaluate(ctx context.Context, response, judgeContext string) (*types.Judgment, error)
}

// Server wraps an MCP SDK server with the probe tool set registered.
type Server struct {
	sdkServer *mcp.Server
	logger    *log.Logger
}

// NewServer builds an MCP server exposing query and judge tools. The judge
// service may be nil, in which case only the query tool is registered.
func NewServer(querySvc QueryService, judgeSvc JudgeService, defaultModel string) (*Server, error) {
	if querySvc == nil {
		return nil, fmt.Errorf("mcpserver: query service is required")
	}

	s := &Server{
		sdkServer: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		}, nil),
		logger: log.New(os.Stderr, "[MCPServer] ", log.LstdFlags),
	}

	s.sdkServer.AddTool(queryToolDefinition(), newQueryToolHandler(querySvc, defaultModel))
	if judgeSvc != nil {
		s.sdkServer.AddTool(judgeToolDefinition(), newJudgeToolHandler(judgeSvc))
	}

	return s, nil
}

// Run serves MCP requests over stdin/stdout until the client disconnects or
// the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("serving MCP over stdio")
	if err := s.sdkServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: stdio transport failed: %w", err)
	}
	return nil
}
