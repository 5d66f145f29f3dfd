package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/menu-critic/internal/config"
	"github.com/jonathan/menu-critic/internal/critique"
	"github.com/jonathan/menu-critic/internal/groq"
	"github.com/jonathan/menu-critic/internal/observability"
	"github.com/jonathan/menu-critic/internal/session"
)

var (
	analyzeTextFile string
	analyzeImage    string
	analyzeMode     string
	analyzeGoal     string
	analyzeContext  string
	analyzeJSON     bool
	analyzeVerbose  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Critique a menu from text or a photo",
	Long: `Run the full critique pipeline on a menu. Input comes from a text file
("-" reads stdin) or an image file; exactly one of the two must be given.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTextFile, "text-file", "", "Path to a menu text file, or - for stdin")
	analyzeCmd.Flags().StringVar(&analyzeImage, "image", "", "Path to a menu photo (JPEG or PNG)")
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "fix", "Critique mode: fix or roast")
	analyzeCmd.Flags().StringVar(&analyzeGoal, "goal", "conversion", "Primary goal: conversion, aov, or experience")
	analyzeCmd.Flags().StringVar(&analyzeContext, "context", "", "Optional restaurant context (cuisine, location, price point)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the validated critique as JSON only")
	analyzeCmd.Flags().BoolVar(&analyzeVerbose, "verbose", false, "Print scorecard boxes and request metadata")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	if (analyzeTextFile == "") == (analyzeImage == "") {
		return fmt.Errorf("exactly one of --text-file or --image is required")
	}

	cfg := config.FromEnv()
	client := groq.NewClient(cfg.APIKey, cfg.BaseURL)
	sess := session.New(cfg, client)

	var (
		outcome *session.Outcome
		mode    = critique.ParseMode(analyzeMode)
		goal    = critique.ParseGoal(analyzeGoal)
	)
	if analyzeTextFile != "" {
		text, err := readTextInput(analyzeTextFile)
		if err != nil {
			return err
		}
		outcome, err = sess.AnalyzeText(context.Background(), text, mode, goal, analyzeContext)
		if err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(analyzeImage)
		if err != nil {
			return fmt.Errorf("failed to read image %s: %w", analyzeImage, err)
		}
		outcome, err = sess.AnalyzeImage(context.Background(), data, mode, goal, analyzeContext)
		if err != nil {
			return err
		}
	}

	if analyzeJSON {
		fmt.Println(outcome.ResultJSON)
		return nil
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintCritique(outcome.Result, outcome.Meta)
	if analyzeVerbose && outcome.Request.Source == session.SourceImage {
		fmt.Printf("Vision confidence: %.2f\n", outcome.Request.VisionConfidence)
		if outcome.Request.VisionNotes != "" {
			fmt.Printf("Vision notes: %s\n", outcome.Request.VisionNotes)
		}
	}
	return nil
}

func readTextInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
