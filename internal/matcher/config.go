package matcher

import (
	"tax-reconciliation-service/pkg/errors"
)

// Config holds the classification thresholds applied to the composite
// confidence of accepted pairs.
type Config struct {
	// MinConfidence is the acceptance floor: pairs below it are never
	// matched.
	MinConfidence float64 `json:"min_confidence"`

	// FuzzyThreshold and ExactThreshold split accepted matches into
	// partial / fuzzy / exact tiers.
	FuzzyThreshold float64 `json:"fuzzy_threshold"`
	ExactThreshold float64 `json:"exact_threshold"`

	// HintPromoteConfidence and HintDemoteConfidence bound when an AI
	// hint nudges the tier. A hint at or above the promote level lifts
	// partial to fuzzy; at or below the demote level it drops fuzzy to
	// partial. Exact is never nudged.
	HintPromoteConfidence float64 `json:"hint_promote_confidence"`
	HintDemoteConfidence  float64 `json:"hint_demote_confidence"`
}

// DefaultConfig returns the default matcher configuration.
func DefaultConfig() *Config {
	return &Config{
		MinConfidence:         0.5,
		FuzzyThreshold:        0.80,
		ExactThreshold:        0.95,
		HintPromoteConfidence: 0.8,
		HintDemoteConfidence:  0.2,
	}
}

// Validate checks threshold ordering. Misordered thresholds are a fatal
// configuration error.
func (c *Config) Validate() error {
	for name, v := range map[string]float64{
		"min_confidence":          c.MinConfidence,
		"fuzzy_threshold":         c.FuzzyThreshold,
		"exact_threshold":         c.ExactThreshold,
		"hint_promote_confidence": c.HintPromoteConfidence,
		"hint_demote_confidence":  c.HintDemoteConfidence,
	} {
		if v < 0 || v > 1 {
			return errors.ConfigurationError(errors.CodeBadThresholds, name, v, nil)
		}
	}

	if c.MinConfidence > c.FuzzyThreshold || c.FuzzyThreshold > c.ExactThreshold {
		return errors.ConfigurationError(errors.CodeBadThresholds, "threshold ordering",
			[]float64{c.MinConfidence, c.FuzzyThreshold, c.ExactThreshold}, nil)
	}

	if c.HintDemoteConfidence > c.HintPromoteConfidence {
		return errors.ConfigurationError(errors.CodeBadThresholds, "hint confidence ordering",
			[]float64{c.HintDemoteConfidence, c.HintPromoteConfidence}, nil)
	}

	return nil
}
