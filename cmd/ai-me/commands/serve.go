// ABOUTME: Serve command starts the MCP server over stdio
// ABOUTME: Enables LLM agents and chat bridges to converse with the persona
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/byoung/ai-me/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the persona as an MCP server on stdio",
		Long: `Start the persona as an MCP server on stdio

Loads and indexes all configured documentation, then serves the chat,
end_session, and search_knowledge tools over the Model Context Protocol.
Sessions are held in memory and erased when they end.`,
		RunE: runServe,
		Example: `  # Start the MCP server (typically launched by an MCP client)
  ai-me serve

  # Configure in an MCP client:
  # {
  #   "mcpServers": {
  #     "ai-me": {
  #       "command": "ai-me",
  #       "args": ["serve"]
  #     }
  #   }
  # }`,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	loadEnv()

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	server := mcpserver.NewMCPServer(
		"ai-me persona",
		versionInfo.Version,
	)

	handlers := mcp.RegisterTools(server, p.orchestrator, p.retriever)

	if !quiet {
		log.Println("ai-me MCP server starting on stdio...")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, ending active sessions...")
		}
		handlers.Shutdown()
		if !quiet {
			log.Println("Shutdown complete")
		}

	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
