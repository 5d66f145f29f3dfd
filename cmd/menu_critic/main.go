// Package main provides the entry point for the Menu Critic CLI and API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "menu_critic",
	Short: "Menu Critic analysis pipeline",
	Long:  "Menu Critic turns a pasted menu or a menu photo into a schema-validated critique with scores, rewrites, and revenue suggestions.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
