// Package main provides the entry point for the outreach agent CLI and
// HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "outreach_agent",
	Short: "Cold outreach copilot",
	Long:  "Outreach agent scrapes a target company, generates personalized cold-outreach message variants grounded in scraped facts, gates them through quality guardrails, and tracks the result through the reply lifecycle.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
