package scoring

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"tax-reconciliation-service/internal/models"
)

// GenerateCandidates scores every (left, right) pair whose amounts fall
// within the candidate window. Scoring is fanned out across a bounded
// worker group, one left record per task; each task writes into its own
// slot so the final canonical sort makes the output independent of
// scheduling.
func (e *Engine) GenerateCandidates(ctx context.Context, left, right []*models.NormalizedRecord) ([]*models.CandidatePair, error) {
	if len(left) == 0 || len(right) == 0 {
		return nil, nil
	}

	perLeft := make([][]*models.CandidatePair, len(left))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)

	for i, l := range left {
		i, l := i, l
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			var pairs []*models.CandidatePair
			for _, r := range right {
				if e.relativeAmountGap(l.Amount, r.Amount) > e.config.CandidateAmountWindow {
					continue
				}
				pairs = append(pairs, e.Score(l, r))
			}

			perLeft[i] = pairs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var candidates []*models.CandidatePair
	for _, pairs := range perLeft {
		candidates = append(candidates, pairs...)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Left.InputOrder != candidates[j].Left.InputOrder {
			return candidates[i].Left.InputOrder < candidates[j].Left.InputOrder
		}
		return candidates[i].Right.InputOrder < candidates[j].Right.InputOrder
	})

	e.log.WithFields(map[string]interface{}{
		"left":       len(left),
		"right":      len(right),
		"candidates": len(candidates),
	}).Debug("generated candidate pairs")

	return candidates, nil
}
