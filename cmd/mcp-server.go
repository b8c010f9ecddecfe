package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appconfig "github.com/probeops/leakprobe/internal/config"
	"github.com/probeops/leakprobe/internal/judge"
	"github.com/probeops/leakprobe/internal/mcpserver"
	"github.com/probeops/leakprobe/internal/query"
	"github.com/probeops/leakprobe/internal/together"
)

var mcpDisableJudge bool

var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Start an MCP (Model Context Protocol) server over stdio",
	Long: `
Start an MCP server that exposes probe operations as tools for MCP-compatible
clients. The server speaks the protocol over stdin/stdout, so it is meant to
be launched by the client, not run interactively.

Tools:
  query_model_with_context  query a model with conversation files as context
  judge_response            score a response for privacy violations

Example client configuration:
  "leakprobe": {"command": "leakprobe", "args": ["mcp-server"]}
`,
	RunE: runMCPServer,
}

func init() {
	mcpServerCmd.Flags().BoolVar(&mcpDisableJudge, "disable-judge", false, "Do not expose the judge tool")
}

func runMCPServer(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := setupTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	client := together.NewClient(cfg)
	runner := query.NewRunner(cfg, client)

	var judgeSvc mcpserver.JudgeService
	if !mcpDisableJudge {
		judgeSvc = judge.New(client, cfg.JudgeModel, cfg.JudgeMaxTokens)
	}

	server, err := mcpserver.NewServer(runner, judgeSvc, cfg.DefaultModel)
	if err != nil {
		return err
	}

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
