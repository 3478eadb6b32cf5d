package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dataflywheel/chatgate/internal/agent"
	"github.com/dataflywheel/chatgate/internal/catalog"
	"github.com/dataflywheel/chatgate/internal/config"
	"github.com/dataflywheel/chatgate/internal/log"
	"github.com/dataflywheel/chatgate/internal/session"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

// runAsk runs a single exchange through the same path a connected client
// would use, which makes it a handy smoke test for the whole stack.
func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: slog.LevelWarn, JSON: cfg.LogJSON})

	ctx := context.Background()
	client, err := catalog.Dial(ctx, cfg.ToolServer, Version, logger)
	if err != nil {
		return fmt.Errorf("dialing tool server: %w", err)
	}
	defer client.Close()

	tools, err := client.Tools(ctx)
	if err != nil {
		return fmt.Errorf("listing tools: %w", err)
	}

	rt, err := agent.NewRuntime(ctx, cfg, tools, logger)
	if err != nil {
		return fmt.Errorf("initializing agent runtime: %w", err)
	}

	systemPrompt := agent.SystemPrompt(ctx, client, cfg, logger)
	sess := session.New("ask", systemPrompt, rt.NewAdapter(client), cfg.RespondTimeoutDuration(), logger)

	question := strings.Join(args, " ")
	fmt.Fprintln(cmd.OutOrStdout(), sess.Respond(ctx, question))
	return nil
}
