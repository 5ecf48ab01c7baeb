// Package cmd contains the vistaar CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vistaar",
	Short: "Vistaar - conversational agricultural advisory service",
	Long: `Vistaar is a conversational advisory backend for farmers.

It answers agricultural questions over a streaming chat API, consulting
weather forecasts, warehouse availability, document search, and a
bilingual term glossary, and keeps per-session transcripts in PostgreSQL.

Running vistaar with no arguments starts the HTTP API server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
