package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/menu-critic/internal/config"
	"github.com/jonathan/menu-critic/internal/groq"
	"github.com/jonathan/menu-critic/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for running the critique pipeline.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := groq.NewClient(cfg.APIKey, cfg.BaseURL)
	return server.New(cfg, client, servePort).Start()
}
