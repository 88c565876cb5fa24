package aiassist

import (
	"time"

	"tax-reconciliation-service/pkg/errors"
)

// Config holds the AI matching adapter settings. The adapter only ever
// sees pairs whose deterministic composite falls inside the ambiguous
// band; everything else is classified without it.
type Config struct {
	Enabled bool   `json:"enabled"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`

	// AmbiguousLow and AmbiguousHigh bound the composite band
	// [low, high) for which hints are requested.
	AmbiguousLow  float64 `json:"ambiguous_low"`
	AmbiguousHigh float64 `json:"ambiguous_high"`

	// BatchSize caps how many pairs go into one completion request.
	BatchSize int `json:"batch_size"`

	// Timeout bounds each completion call. A timed-out batch simply
	// yields no hints.
	Timeout time.Duration `json:"timeout"`

	// MaxRetries is the number of additional attempts per batch.
	MaxRetries int `json:"max_retries"`
}

// DefaultConfig returns the default adapter configuration with the
// adapter disabled.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       false,
		Model:         "gpt-4o-mini",
		AmbiguousLow:  0.5,
		AmbiguousHigh: 0.8,
		BatchSize:     20,
		Timeout:       30 * time.Second,
		MaxRetries:    2,
	}
}

// Validate checks the adapter configuration.
func (c *Config) Validate() error {
	if c.AmbiguousLow < 0 || c.AmbiguousLow > 1 || c.AmbiguousHigh < 0 || c.AmbiguousHigh > 1 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ai.ambiguous_band",
			[]float64{c.AmbiguousLow, c.AmbiguousHigh}, nil)
	}

	if c.AmbiguousLow > c.AmbiguousHigh {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ai.ambiguous_band",
			[]float64{c.AmbiguousLow, c.AmbiguousHigh}, nil)
	}

	if c.BatchSize <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ai.batch_size", c.BatchSize, nil)
	}

	if c.Timeout <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ai.timeout", c.Timeout.String(), nil)
	}

	if c.MaxRetries < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ai.max_retries", c.MaxRetries, nil)
	}

	if c.Enabled && c.Model == "" {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ai.model", c.Model, nil)
	}

	return nil
}
