// Package cmd implements the proposal-engine command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "proposal-engine",
	Short: "Credit proposal generation backend for mortgage brokers",
	Long: `proposal-engine turns structured loan application data into
AI-generated credit proposals grounded in lender policy documents.

It retrieves relevant policy chunks from a pgvector knowledge base using
multi-query retrieval and serves the pipeline over a JSON HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
