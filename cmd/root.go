// Package cmd wires the CLI. The serve command runs the gateway; ask and
// catalog are one-shot utilities against the same configuration.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatgate",
	Short: "chatgate - conversational gateway over an MCP tool server",
	Long: `chatgate bridges chat clients to an LLM agent whose tools live on a
remote MCP server. Clients connect over WebSocket (or plain HTTP) and get a
per-client conversation with history; the agent calls the server's tools on
their behalf.

Running chatgate with no arguments starts the gateway.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
