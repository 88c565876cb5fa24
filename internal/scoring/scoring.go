package scoring

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"tax-reconciliation-service/internal/models"
	"tax-reconciliation-service/pkg/logger"
)

// Engine computes the four sub-scores and the weighted composite for
// candidate pairs. An Engine is safe for concurrent use once constructed.
type Engine struct {
	config *Config
	log    logger.Logger
}

// NewEngine creates a scoring engine after validating the configuration.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		config: config,
		log:    logger.WithComponent("scoring"),
	}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Score computes the sub-scores and composite for one (left, right) pair.
func (e *Engine) Score(left, right *models.NormalizedRecord) *models.CandidatePair {
	scores := models.ComponentScores{
		Amount:    e.AmountScore(left.Amount, right.Amount),
		Date:      e.DateScore(left, right),
		Vendor:    VendorSimilarity(left.CounterpartyName, right.CounterpartyName),
		Reference: e.ReferenceScore(left.ReferenceNumber, right.ReferenceNumber),
	}

	return &models.CandidatePair{
		Left:      left,
		Right:     right,
		LeftID:    left.ID,
		RightID:   right.ID,
		Scores:    scores,
		Composite: e.Composite(scores),
	}
}

// Composite folds the sub-scores into the weighted composite, clamped to
// [0,1] against float drift.
func (e *Engine) Composite(s models.ComponentScores) float64 {
	w := e.config.Weights
	composite := w.Amount*s.Amount + w.Date*s.Date + w.Vendor*s.Vendor + w.Reference*s.Reference
	return clamp01(composite)
}

// AmountScore returns 1 - min(1, |a-b| / max(|a|, |b|, epsilon)). Equal
// amounts score 1 regardless of magnitude; the relative difference keeps
// large and small invoices on the same scale.
func (e *Engine) AmountScore(a, b decimal.Decimal) float64 {
	diff, _ := a.Sub(b).Abs().Float64()

	magA, _ := a.Abs().Float64()
	magB, _ := b.Abs().Float64()
	denom := math.Max(math.Max(magA, magB), e.config.AmountEpsilon)

	return 1 - math.Min(1, diff/denom)
}

// relativeAmountGap is the raw relative difference used by the candidate
// pre-filter, before the score's min(1, ...) cap.
func (e *Engine) relativeAmountGap(a, b decimal.Decimal) float64 {
	diff, _ := a.Sub(b).Abs().Float64()

	magA, _ := a.Abs().Float64()
	magB, _ := b.Abs().Float64()
	denom := math.Max(math.Max(magA, magB), e.config.AmountEpsilon)

	return diff / denom
}

// DateScore decays linearly from 1 (same day) to 0 at the configured
// tolerance. Records more than the tolerance apart score zero.
func (e *Engine) DateScore(left, right *models.NormalizedRecord) float64 {
	days := math.Abs(left.Date.Sub(right.Date).Hours() / 24)
	return math.Max(0, 1-days/float64(e.config.DateToleranceDays))
}

// normalizeReference lowercases a reference number and drops every
// formatting character, so OCR variants of the same number ("FP-001",
// "FP.001", "FP 001") compare equal.
func normalizeReference(ref string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(ref) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ReferenceScore compares document reference numbers: 1 for an exact
// match after formatting is stripped, the configured partial credit
// when one reference contains the other (banks often embed invoice
// numbers inside longer transfer descriptions), 0 otherwise.
// A missing reference on either side scores 0.
func (e *Engine) ReferenceScore(a, b string) float64 {
	na := normalizeReference(a)
	nb := normalizeReference(b)

	if na == "" || nb == "" {
		return 0
	}

	if na == nb {
		return 1
	}

	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return e.config.ReferencePartialCredit
	}

	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
