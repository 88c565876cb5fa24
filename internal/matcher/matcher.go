package matcher

import (
	"sort"

	"github.com/google/uuid"

	"tax-reconciliation-service/internal/models"
	"tax-reconciliation-service/pkg/logger"
)

// matchIDNamespace seeds name-based match IDs so the same (left, right)
// assignment always carries the same ID across re-runs.
var matchIDNamespace = uuid.MustParse("7b8a1f5e-2d43-4c6a-9b1e-3f0a6c2d8e91")

// Engine resolves scored candidate pairs into a one-to-one assignment.
// The engine is stateless per invocation; the consumed sets live only
// inside one Resolve call.
type Engine struct {
	config *Config
	log    logger.Logger
}

// NewEngine creates a matching engine after validating the configuration.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		config: config,
		log:    logger.WithComponent("matcher"),
	}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Resolve runs greedy highest-composite-first assignment over the
// candidates and accounts for every record on both sides:
//
//  1. candidates below MinConfidence are discarded
//  2. survivors are sorted by composite desc, then amount score desc,
//     then left input order asc, then right input order asc
//  3. a pair is accepted only if neither side is already consumed
//  4. accepted pairs are classified into exact / fuzzy / partial
//  5. unconsumed records become remainders, tagged with whether they
//     ever had an eligible candidate
//
// Greedy is the documented policy here. It can be beaten by an optimal
// assignment solver on adversarial score distributions, but it is
// reproducible and its decisions are auditable pair by pair.
func (e *Engine) Resolve(candidates []*models.CandidatePair, left, right []*models.NormalizedRecord) ([]*models.Match, []*models.Remainder, []*models.Remainder) {
	eligible := make([]*models.CandidatePair, 0, len(candidates))
	// eligibility is tracked per side; left and right IDs come from
	// different documents and may collide
	hadEligibleLeft := make(map[string]bool)
	hadEligibleRight := make(map[string]bool)

	for _, c := range candidates {
		if c.Composite < e.config.MinConfidence {
			continue
		}
		eligible = append(eligible, c)
		hadEligibleLeft[c.LeftID] = true
		hadEligibleRight[c.RightID] = true
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if a.Scores.Amount != b.Scores.Amount {
			return a.Scores.Amount > b.Scores.Amount
		}
		if a.Left.InputOrder != b.Left.InputOrder {
			return a.Left.InputOrder < b.Left.InputOrder
		}
		return a.Right.InputOrder < b.Right.InputOrder
	})

	consumedLeft := make(map[string]bool)
	consumedRight := make(map[string]bool)
	var matches []*models.Match

	for _, c := range eligible {
		if consumedLeft[c.LeftID] || consumedRight[c.RightID] {
			continue
		}

		consumedLeft[c.LeftID] = true
		consumedRight[c.RightID] = true
		matches = append(matches, e.finalize(c))
	}

	remainderLeft := e.remainders(left, consumedLeft, hadEligibleLeft)
	remainderRight := e.remainders(right, consumedRight, hadEligibleRight)

	e.log.WithFields(logger.Fields{
		"candidates":      len(candidates),
		"eligible":        len(eligible),
		"matches":         len(matches),
		"remainder_left":  len(remainderLeft),
		"remainder_right": len(remainderRight),
	}).Debug("resolved assignment")

	return matches, remainderLeft, remainderRight
}

// finalize turns an accepted candidate into an immutable Match with a
// deterministic ID and a classified tier.
func (e *Engine) finalize(c *models.CandidatePair) *models.Match {
	return &models.Match{
		ID:         uuid.NewSHA1(matchIDNamespace, []byte(c.LeftID+"|"+c.RightID)).String(),
		LeftID:     c.LeftID,
		RightID:    c.RightID,
		Type:       e.classify(c),
		Confidence: c.Composite,
		Scores:     c.Scores,
		Hint:       c.Hint,
		Left:       c.Left,
		Right:      c.Right,
	}
}

// classify maps the composite to a tier, then lets an AI hint nudge the
// result by at most one tier. The hint never changes acceptance and
// never produces or removes an exact classification.
func (e *Engine) classify(c *models.CandidatePair) models.MatchType {
	var tier models.MatchType
	switch {
	case c.Composite >= e.config.ExactThreshold:
		tier = models.MatchExact
	case c.Composite >= e.config.FuzzyThreshold:
		tier = models.MatchFuzzy
	default:
		tier = models.MatchPartial
	}

	if c.Hint == nil || tier == models.MatchExact {
		return tier
	}

	switch {
	case tier == models.MatchPartial && c.Hint.Confidence >= e.config.HintPromoteConfidence:
		return models.MatchFuzzy
	case tier == models.MatchFuzzy && c.Hint.Confidence <= e.config.HintDemoteConfidence:
		return models.MatchPartial
	}

	return tier
}

func (e *Engine) remainders(records []*models.NormalizedRecord, consumed, hadEligible map[string]bool) []*models.Remainder {
	var out []*models.Remainder
	for _, r := range records {
		if consumed[r.ID] {
			continue
		}

		reason := models.ReasonBelowThreshold
		if hadEligible[r.ID] {
			reason = models.ReasonLostTieBreak
		}

		out = append(out, &models.Remainder{Record: r, Reason: reason})
	}
	return out
}
