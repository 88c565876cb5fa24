package config

import (
	"github.com/spf13/viper"

	"tax-reconciliation-service/internal/aiassist"
	"tax-reconciliation-service/internal/scoring"
	"tax-reconciliation-service/pkg/logger"
)

// CreateLogger builds the logger for a CLI invocation.
func CreateLogger(verbose bool) (logger.Logger, error) {
	cfg := logger.DefaultConfig()
	if verbose {
		cfg = logger.DebugConfig()
	}

	if format := viper.GetString("log-format"); format != "" {
		cfg.Format = logger.Format(format)
	}

	return logger.NewLogger(cfg)
}

// CreateScoringConfig builds the scoring configuration from CLI flags,
// starting from the engine defaults.
func CreateScoringConfig(dateToleranceDays int) *scoring.Config {
	cfg := scoring.DefaultConfig()
	cfg.DateToleranceDays = dateToleranceDays

	if workers := viper.GetInt("scoring-workers"); workers > 0 {
		cfg.Workers = workers
	}

	return cfg
}

// CreateAIConfig builds the adapter configuration. The API key is never
// a flag; it comes from the environment (RECONCILER_AI_API_KEY) or a
// config file.
func CreateAIConfig(enabled bool, model string) *aiassist.Config {
	cfg := aiassist.DefaultConfig()
	cfg.Enabled = enabled
	cfg.APIKey = viper.GetString("ai_api_key")

	if model != "" {
		cfg.Model = model
	}
	if baseURL := viper.GetString("ai_base_url"); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return cfg
}
