package scoring

import (
	"math"

	"tax-reconciliation-service/pkg/errors"
)

// Weights holds the relative importance of each sub-score in the
// composite. The four weights must each lie in [0,1] and sum to 1.
type Weights struct {
	Amount    float64 `json:"amount"`
	Date      float64 `json:"date"`
	Vendor    float64 `json:"vendor"`
	Reference float64 `json:"reference"`
}

// Sum returns the total of the four weights.
func (w Weights) Sum() float64 {
	return w.Amount + w.Date + w.Vendor + w.Reference
}

// Config holds the tunable parameters of the scoring engine.
type Config struct {
	Weights Weights `json:"weights"`

	// DateToleranceDays is the window beyond which the date sub-score
	// reaches zero. Within the window the score decays linearly.
	DateToleranceDays int `json:"date_tolerance_days"`

	// AmountEpsilon guards the relative-difference denominator so
	// comparing two zero amounts never divides by zero.
	AmountEpsilon float64 `json:"amount_epsilon"`

	// ReferencePartialCredit is the reference sub-score awarded when one
	// reference contains the other without matching it exactly.
	ReferencePartialCredit float64 `json:"reference_partial_credit"`

	// CandidateAmountWindow is the maximum relative amount gap for a
	// pair to be scored at all. Pairs beyond the window (for example
	// opposite-sign amounts) are never generated.
	CandidateAmountWindow float64 `json:"candidate_amount_window"`

	// Workers bounds the number of goroutines used for candidate
	// scoring. Ordering of results does not depend on this value.
	Workers int `json:"workers"`
}

// DefaultConfig returns the default scoring configuration. Amount and
// reference dominate the composite because they are the most reliable
// OCR fields; vendor names and dates are noisier.
func DefaultConfig() *Config {
	return &Config{
		Weights: Weights{
			Amount:    0.35,
			Reference: 0.30,
			Vendor:    0.20,
			Date:      0.15,
		},
		DateToleranceDays:      7,
		AmountEpsilon:          0.01,
		ReferencePartialCredit: 0.5,
		CandidateAmountWindow:  1.0,
		Workers:                4,
	}
}

const weightSumTolerance = 1e-9

// Validate checks the configuration for consistency. A failing
// configuration is fatal before any matching work begins.
func (c *Config) Validate() error {
	for name, w := range map[string]float64{
		"amount":    c.Weights.Amount,
		"date":      c.Weights.Date,
		"vendor":    c.Weights.Vendor,
		"reference": c.Weights.Reference,
	} {
		if w < 0 || w > 1 {
			return errors.ConfigurationError(errors.CodeInvalidWeights, "weights."+name, w, nil)
		}
	}

	if math.Abs(c.Weights.Sum()-1.0) > weightSumTolerance {
		return errors.ConfigurationError(errors.CodeInvalidWeights, "weights", c.Weights.Sum(), nil)
	}

	if c.DateToleranceDays <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "date_tolerance_days", c.DateToleranceDays, nil)
	}

	if c.AmountEpsilon <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "amount_epsilon", c.AmountEpsilon, nil)
	}

	if c.ReferencePartialCredit < 0 || c.ReferencePartialCredit > 1 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "reference_partial_credit", c.ReferencePartialCredit, nil)
	}

	if c.CandidateAmountWindow <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "candidate_amount_window", c.CandidateAmountWindow, nil)
	}

	if c.Workers <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "workers", c.Workers, nil)
	}

	return nil
}
