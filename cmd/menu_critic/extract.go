package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/menu-critic/internal/config"
	"github.com/jonathan/menu-critic/internal/groq"
	"github.com/jonathan/menu-critic/internal/imaging"
	"github.com/jonathan/menu-critic/internal/observability"
	"github.com/jonathan/menu-critic/internal/vision"
)

var (
	extractImage   string
	extractVerbose bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract menu text from a photo without critiquing it",
	Long:  `Normalize a menu photo and run vision extraction only, printing the transcribed text.`,
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractImage, "image", "", "Path to a menu photo (JPEG or PNG)")
	extractCmd.Flags().BoolVar(&extractVerbose, "verbose", false, "Print confidence and extraction notes")
	_ = extractCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(_ *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(extractImage)
	if err != nil {
		return fmt.Errorf("failed to read image %s: %w", extractImage, err)
	}

	opts := imaging.DefaultOptions()
	opts.MaxUploadBytes = cfg.MaxImageUploadBytes
	opts.TargetBytes = cfg.TargetImageBytes
	payload, _, err := opts.Normalize(data)
	if err != nil {
		return err
	}

	client := groq.NewClient(cfg.APIKey, cfg.BaseURL)
	result, err := vision.Extract(context.Background(), client, cfg.VisionModel, payload)
	if err != nil {
		return err
	}

	if extractVerbose {
		observability.NewPrinter(os.Stdout).PrintVision(result)
	}
	fmt.Println(result.MenuText)
	return nil
}
