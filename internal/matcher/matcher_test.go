package matcher

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tax-reconciliation-service/internal/models"
)

func record(id string, order int) *models.NormalizedRecord {
	return &models.NormalizedRecord{
		ID:          id,
		SourcePoint: models.PointA,
		Date:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromInt(1000000),
		InputOrder:  order,
	}
}

func pair(left, right *models.NormalizedRecord, composite, amountScore float64) *models.CandidatePair {
	return &models.CandidatePair{
		Left:      left,
		Right:     right,
		LeftID:    left.ID,
		RightID:   right.ID,
		Composite: composite,
		Scores:    models.ComponentScores{Amount: amountScore},
	}
}

func mustEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func TestConfigValidateOrdering(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"min above fuzzy", func(c *Config) { c.MinConfidence = 0.9 }, true},
		{"fuzzy above exact", func(c *Config) { c.FuzzyThreshold = 0.99 }, true},
		{"negative threshold", func(c *Config) { c.MinConfidence = -0.1 }, true},
		{"above one", func(c *Config) { c.ExactThreshold = 1.5 }, true},
		{"hint ordering inverted", func(c *Config) { c.HintDemoteConfidence = 0.9 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveOneToOneInvariant(t *testing.T) {
	e := mustEngine(t, nil)

	lefts := []*models.NormalizedRecord{record("a-1", 0), record("a-2", 1), record("a-3", 2)}
	rights := []*models.NormalizedRecord{record("c-1", 0), record("c-2", 1)}

	var candidates []*models.CandidatePair
	for _, l := range lefts {
		for _, r := range rights {
			candidates = append(candidates, pair(l, r, 0.9, 1.0))
		}
	}

	matches, remLeft, remRight := e.Resolve(candidates, lefts, rights)

	seen := make(map[string]bool)
	for _, m := range matches {
		if seen[m.LeftID] {
			t.Errorf("left record %s appears in more than one match", m.LeftID)
		}
		if seen[m.RightID] {
			t.Errorf("right record %s appears in more than one match", m.RightID)
		}
		seen[m.LeftID] = true
		seen[m.RightID] = true
	}

	if len(matches) != 2 {
		t.Errorf("got %d matches, want 2 (right side has only two records)", len(matches))
	}
	if len(remLeft) != 1 {
		t.Errorf("got %d left remainders, want 1", len(remLeft))
	}
	if len(remRight) != 0 {
		t.Errorf("got %d right remainders, want 0", len(remRight))
	}
}

func TestResolveCompleteness(t *testing.T) {
	e := mustEngine(t, nil)

	lefts := []*models.NormalizedRecord{record("a-1", 0), record("a-2", 1)}
	rights := []*models.NormalizedRecord{record("c-1", 0), record("c-2", 1), record("c-3", 2)}

	candidates := []*models.CandidatePair{
		pair(lefts[0], rights[0], 0.9, 1.0),
		pair(lefts[1], rights[1], 0.3, 1.0), // below min, both become remainders
	}

	matches, remLeft, remRight := e.Resolve(candidates, lefts, rights)

	accounted := make(map[string]int)
	for _, m := range matches {
		accounted[m.LeftID]++
		accounted[m.RightID]++
	}
	for _, r := range remLeft {
		accounted[r.Record.ID]++
	}
	for _, r := range remRight {
		accounted[r.Record.ID]++
	}

	for _, rec := range append(lefts, rights...) {
		if accounted[rec.ID] != 1 {
			t.Errorf("record %s accounted %d times, want exactly once", rec.ID, accounted[rec.ID])
		}
	}
}

func TestResolveGreedyConsumption(t *testing.T) {
	// Two right records both plausible for one left record: the higher
	// pair wins and the loser is not re-offered elsewhere at lower score.
	e := mustEngine(t, nil)

	left := record("a-1", 0)
	rightHigh := record("c-1", 0)
	rightLow := record("c-2", 1)

	candidates := []*models.CandidatePair{
		pair(left, rightHigh, 0.92, 1.0),
		pair(left, rightLow, 0.88, 1.0),
	}

	matches, _, remRight := e.Resolve(candidates,
		[]*models.NormalizedRecord{left},
		[]*models.NormalizedRecord{rightHigh, rightLow})

	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].RightID != "c-1" {
		t.Errorf("matched right = %s, want c-1 (score 0.92 over 0.88)", matches[0].RightID)
	}

	if len(remRight) != 1 {
		t.Fatalf("got %d right remainders, want 1", len(remRight))
	}
	if remRight[0].Record.ID != "c-2" {
		t.Errorf("remainder = %s, want c-2", remRight[0].Record.ID)
	}
	if remRight[0].Reason != models.ReasonLostTieBreak {
		t.Errorf("remainder reason = %s, want %s", remRight[0].Reason, models.ReasonLostTieBreak)
	}
}

func TestResolveRemainderReasons(t *testing.T) {
	e := mustEngine(t, nil)

	left := record("a-1", 0)
	right := record("c-1", 0)
	noCandidate := record("c-2", 1)

	candidates := []*models.CandidatePair{
		pair(left, right, 0.2, 0.2), // below min confidence
	}

	_, remLeft, remRight := e.Resolve(candidates,
		[]*models.NormalizedRecord{left},
		[]*models.NormalizedRecord{right, noCandidate})

	if len(remLeft) != 1 || remLeft[0].Reason != models.ReasonBelowThreshold {
		t.Errorf("left remainder should be below_threshold, got %+v", remLeft)
	}
	for _, r := range remRight {
		if r.Reason != models.ReasonBelowThreshold {
			t.Errorf("right remainder %s reason = %s, want %s", r.Record.ID, r.Reason, models.ReasonBelowThreshold)
		}
	}
}

func TestResolveRemainderReasonIDSharedAcrossSides(t *testing.T) {
	e := mustEngine(t, nil)

	left := record("dup", 0)
	rightDup := record("dup", 0)
	rightOther := record("c-2", 1)

	// the left record's only eligible candidate points at c-2; the
	// right record that happens to share its ID never had one
	candidates := []*models.CandidatePair{
		pair(left, rightOther, 0.9, 0.9),
	}

	_, _, remRight := e.Resolve(candidates,
		[]*models.NormalizedRecord{left},
		[]*models.NormalizedRecord{rightDup, rightOther})

	if len(remRight) != 1 {
		t.Fatalf("got %d right remainders, want 1", len(remRight))
	}
	if remRight[0].Record.ID != "dup" {
		t.Fatalf("remainder = %s, want dup", remRight[0].Record.ID)
	}
	if remRight[0].Reason != models.ReasonBelowThreshold {
		t.Errorf("reason = %s, want %s (left-side eligibility must not leak to the right)",
			remRight[0].Reason, models.ReasonBelowThreshold)
	}
}

func TestResolveDeterminism(t *testing.T) {
	e := mustEngine(t, nil)

	var lefts, rights []*models.NormalizedRecord
	for i := 0; i < 10; i++ {
		lefts = append(lefts, record("a-"+string(rune('0'+i)), i))
		rights = append(rights, record("c-"+string(rune('0'+i)), i))
	}

	build := func() []*models.CandidatePair {
		var cs []*models.CandidatePair
		for i, l := range lefts {
			for j, r := range rights {
				// identical composites everywhere force the tie-breaks
				_ = i
				_ = j
				cs = append(cs, pair(l, r, 0.85, 0.85))
			}
		}
		return cs
	}

	first, _, _ := e.Resolve(build(), lefts, rights)
	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	for run := 0; run < 5; run++ {
		again, _, _ := e.Resolve(build(), lefts, rights)
		againJSON, err := json.Marshal(again)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(firstJSON) != string(againJSON) {
			t.Fatalf("run %d output differs from first run", run)
		}
	}
}

func TestResolveTieBreakByInputOrder(t *testing.T) {
	e := mustEngine(t, nil)

	left1 := record("a-1", 0)
	left2 := record("a-2", 1)
	right := record("c-1", 0)

	// identical composite and amount score: the earlier left input wins
	candidates := []*models.CandidatePair{
		pair(left2, right, 0.9, 0.9),
		pair(left1, right, 0.9, 0.9),
	}

	matches, _, _ := e.Resolve(candidates,
		[]*models.NormalizedRecord{left1, left2},
		[]*models.NormalizedRecord{right})

	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].LeftID != "a-1" {
		t.Errorf("matched left = %s, want a-1 (earlier input order)", matches[0].LeftID)
	}
}

func TestResolveMonotonicity(t *testing.T) {
	lefts := []*models.NormalizedRecord{record("a-1", 0), record("a-2", 1), record("a-3", 2)}
	rights := []*models.NormalizedRecord{record("c-1", 0), record("c-2", 1), record("c-3", 2)}

	composites := []float64{0.93, 0.72, 0.55}
	build := func() []*models.CandidatePair {
		var cs []*models.CandidatePair
		for i := range lefts {
			cs = append(cs, pair(lefts[i], rights[i], composites[i], composites[i]))
		}
		return cs
	}

	prevMatched := -1
	for _, min := range []float64{0.8, 0.7, 0.6, 0.5} {
		cfg := DefaultConfig()
		cfg.MinConfidence = min
		e := mustEngine(t, cfg)

		matches, _, _ := e.Resolve(build(), lefts, rights)
		if prevMatched >= 0 && len(matches) < prevMatched {
			t.Errorf("lowering min_confidence to %f decreased matches from %d to %d",
				min, prevMatched, len(matches))
		}
		prevMatched = len(matches)
	}
}

func TestClassification(t *testing.T) {
	e := mustEngine(t, nil)

	tests := []struct {
		name      string
		composite float64
		hint      *models.AIHint
		want      models.MatchType
	}{
		{"exact at threshold", 0.95, nil, models.MatchExact},
		{"fuzzy", 0.85, nil, models.MatchFuzzy},
		{"partial", 0.6, nil, models.MatchPartial},
		{"strong hint promotes partial", 0.6, &models.AIHint{Confidence: 0.9}, models.MatchFuzzy},
		{"weak hint demotes fuzzy", 0.85, &models.AIHint{Confidence: 0.1}, models.MatchPartial},
		{"mid hint changes nothing", 0.6, &models.AIHint{Confidence: 0.5}, models.MatchPartial},
		{"hint never touches exact", 0.96, &models.AIHint{Confidence: 0.0}, models.MatchExact},
		{"hint cannot promote partial past fuzzy", 0.79, &models.AIHint{Confidence: 1.0}, models.MatchFuzzy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left := record("a-1", 0)
			right := record("c-1", 0)
			c := pair(left, right, tt.composite, tt.composite)
			c.Hint = tt.hint

			matches, _, _ := e.Resolve([]*models.CandidatePair{c},
				[]*models.NormalizedRecord{left},
				[]*models.NormalizedRecord{right})

			if len(matches) != 1 {
				t.Fatalf("got %d matches, want 1", len(matches))
			}
			if matches[0].Type != tt.want {
				t.Errorf("classification = %s, want %s", matches[0].Type, tt.want)
			}
		})
	}
}

func TestHintNeverChangesAcceptance(t *testing.T) {
	e := mustEngine(t, nil)

	left := record("a-1", 0)
	right := record("c-1", 0)
	c := pair(left, right, 0.4, 0.4) // below min confidence
	c.Hint = &models.AIHint{Confidence: 1.0}

	matches, remLeft, _ := e.Resolve([]*models.CandidatePair{c},
		[]*models.NormalizedRecord{left},
		[]*models.NormalizedRecord{right})

	if len(matches) != 0 {
		t.Errorf("a hint must not lift a pair over the acceptance floor, got %d matches", len(matches))
	}
	if len(remLeft) != 1 {
		t.Errorf("expected the left record as a remainder")
	}
}

func TestMatchIDsStableAcrossRuns(t *testing.T) {
	e := mustEngine(t, nil)

	left := record("a-1", 0)
	right := record("c-1", 0)

	first, _, _ := e.Resolve([]*models.CandidatePair{pair(left, right, 0.9, 0.9)},
		[]*models.NormalizedRecord{left}, []*models.NormalizedRecord{right})
	second, _, _ := e.Resolve([]*models.CandidatePair{pair(left, right, 0.9, 0.9)},
		[]*models.NormalizedRecord{left}, []*models.NormalizedRecord{right})

	if first[0].ID != second[0].ID {
		t.Errorf("match ID differs across identical runs: %s vs %s", first[0].ID, second[0].ID)
	}
	if first[0].ID == "" {
		t.Error("match ID is empty")
	}
}
