// ABOUTME: Index command builds the knowledge index and reports statistics
// ABOUTME: Useful for validating sources and credentials without chatting
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewIndexCmd creates the index command
func NewIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Load sources and build the index, then exit",
		Long: `Load sources and build the index, then exit

Runs the full load-chunk-embed pipeline against the configured local
directory and GitHub repositories and prints what was indexed. Use it
to validate configuration, source availability, and credentials.`,
		RunE: runIndex,
		Example: `  # Validate sources and build the index once
  ai-me index`,
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	loadEnv()

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Documents loaded:  %d\n", p.docCount)
	fmt.Fprintf(out, "Passages indexed:  %d\n", p.passageCount)
	fmt.Fprintf(out, "Retriever ready:   %t\n", p.retriever.Ready())
	return nil
}
