// ABOUTME: Chat command runs an interactive terminal conversation
// ABOUTME: One process-lifetime session, ended cleanly on EOF or interrupt
package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/byoung/ai-me/internal/agent"
)

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the persona in the terminal",
		Long: `Chat with the persona in the terminal

Starts one conversation session and reads messages line by line from
stdin. The session and anything remembered during it are erased when
the conversation ends.`,
		RunE: runChat,
		Example: `  # Start an interactive conversation
  ai-me chat`,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	loadEnv()

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	sessionID := uuid.New().String()
	defer p.orchestrator.End(sessionID)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Chatting with %s. Press Ctrl-D to end the conversation.\n\n", p.cfg.BotFullName)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		reply, err := p.orchestrator.Handle(ctx, sessionID, text)
		if err != nil {
			if errors.Is(err, agent.ErrSessionInit) {
				fmt.Fprintln(out, "The knowledge index is still being built, try again shortly.")
				continue
			}
			return err
		}
		fmt.Fprintf(out, "\n%s\n\n", reply)

		if ctx.Err() != nil {
			break
		}
	}

	fmt.Fprintln(out, "\nGoodbye.")
	return scanner.Err()
}
