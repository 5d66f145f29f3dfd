// Package config provides configuration loading and validation for the menu critic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jonathan/menu-critic/internal/guard"
)

// Defaults for the Groq-hosted models and the request pipeline limits.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultTextModel   = "openai/gpt-oss-20b"
	DefaultVisionModel = "meta-llama/llama-4-scout-17b-16e-instruct"

	DefaultCooldown            = 10 * time.Second
	DefaultMaxTextChars        = 12_000
	DefaultMaxImageUploadBytes = 8 * 1024 * 1024
	DefaultTargetImageBytes    = 3_500_000
	DefaultMinExtractedChars   = 20
	DefaultMinVisionConfidence = 0.45
)

// Config holds everything the pipeline needs. All fields have working defaults
// except APIKey, which must come from the environment.
type Config struct {
	// Provider
	APIKey      string // Groq API key (GROQ_API_KEY)
	BaseURL     string // Chat completions base URL
	TextModel   string // Model used for critique generation
	VisionModel string // Model used for menu text extraction

	// Limits
	Cooldown            time.Duration // Minimum gap between analysis requests per session
	MaxTextChars        int           // Menu text clamp length
	MaxImageUploadBytes int64         // Raw upload ceiling
	TargetImageBytes    int           // Encoded payload ceiling

	// Confidence gate for image-based requests
	MinExtractedChars   int
	MinVisionConfidence float64

	// Menu-likeness heuristic thresholds
	Guard guard.Thresholds
}

// Default returns a Config populated with defaults and no API key.
func Default() *Config {
	return &Config{
		BaseURL:             DefaultBaseURL,
		TextModel:           DefaultTextModel,
		VisionModel:         DefaultVisionModel,
		Cooldown:            DefaultCooldown,
		MaxTextChars:        DefaultMaxTextChars,
		MaxImageUploadBytes: DefaultMaxImageUploadBytes,
		TargetImageBytes:    DefaultTargetImageBytes,
		MinExtractedChars:   DefaultMinExtractedChars,
		MinVisionConfidence: DefaultMinVisionConfidence,
		Guard:               guard.DefaultThresholds(),
	}
}

// FromEnv builds a Config from environment variables on top of defaults.
// The API key is read but not validated here; a missing key only becomes an
// error when a provider call is attempted (see Validate).
func FromEnv() *Config {
	cfg := Default()
	cfg.APIKey = os.Getenv("GROQ_API_KEY")

	if v := os.Getenv("MENU_CRITIC_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("MENU_CRITIC_TEXT_MODEL"); v != "" {
		cfg.TextModel = v
	}
	if v := os.Getenv("MENU_CRITIC_VISION_MODEL"); v != "" {
		cfg.VisionModel = v
	}
	if v := os.Getenv("MENU_CRITIC_COOLDOWN_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			cfg.Cooldown = time.Duration(secs) * time.Second
		}
	}
	return cfg
}

// Validate checks that the configuration can support provider calls.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return &SetupError{Message: "missing GROQ_API_KEY"}
	}
	if c.TextModel == "" || c.VisionModel == "" {
		return fmt.Errorf("config error: model identifiers must not be empty")
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("config error: cooldown must be non-negative")
	}
	return nil
}
