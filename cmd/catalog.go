package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dataflywheel/chatgate/internal/catalog"
	"github.com/dataflywheel/chatgate/internal/config"
	"github.com/dataflywheel/chatgate/internal/log"
)

var readURI string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the tool server's tools, prompts, and resources",
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().StringVar(&readURI, "read", "", "read one resource by URI instead of listing")
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, _ []string) error {
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

	out := cmd.OutOrStdout()

	if readURI != "" {
		text, err := client.ReadResource(ctx, readURI)
		if err != nil {
			return fmt.Errorf("reading resource: %w", err)
		}
		fmt.Fprintln(out, text)
		return nil
	}

	tools, err := client.Tools(ctx)
	if err != nil {
		return fmt.Errorf("listing tools: %w", err)
	}
	fmt.Fprintf(out, "Tools (%d):\n", len(tools))
	for _, t := range tools {
		fmt.Fprintf(out, "  %-24s %s\n", t.Name, t.Description)
	}

	prompts, err := client.Prompts(ctx)
	if err != nil {
		return fmt.Errorf("listing prompts: %w", err)
	}
	fmt.Fprintf(out, "\nPrompts (%d):\n", len(prompts))
	for _, p := range prompts {
		fmt.Fprintf(out, "  %-24s %s\n", p.Name, p.Description)
		for _, a := range p.Arguments {
			required := ""
			if a.Required {
				required = " (required)"
			}
			fmt.Fprintf(out, "    - %s%s: %s\n", a.Name, required, a.Description)
		}
	}

	resources, err := client.Resources(ctx)
	if err != nil {
		return fmt.Errorf("listing resources: %w", err)
	}
	fmt.Fprintf(out, "\nResources (%d):\n", len(resources))
	for _, r := range resources {
		fmt.Fprintf(out, "  %-40s %s\n", r.URI, r.Description)
		if r.Parametric() {
			fmt.Fprintf(out, "    params: %v\n", r.Params)
		}
	}

	return nil
}
