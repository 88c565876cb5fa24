package reconciler

import (
	"context"
	"time"

	"tax-reconciliation-service/internal/aiassist"
	"tax-reconciliation-service/internal/matcher"
	"tax-reconciliation-service/internal/models"
	"tax-reconciliation-service/internal/normalizer"
	"tax-reconciliation-service/internal/scoring"
	"tax-reconciliation-service/pkg/errors"
	"tax-reconciliation-service/pkg/logger"
)

// Options control one reconciliation run.
type Options struct {
	// UseAI enables the hint adapter for ambiguous pairs.
	UseAI bool

	// MinConfidence, when positive, overrides the matcher's acceptance
	// floor for this run only.
	MinConfidence float64
}

// Orchestrator runs the full reconciliation pipeline: NPWP split,
// normalization, the two matching passes and aggregation. All working
// data is scoped to one Reconcile call; the orchestrator itself is safe
// to reuse across runs.
type Orchestrator struct {
	normalizer *normalizer.Normalizer
	scorer     *scoring.Engine
	matcher    *matcher.Engine
	adapter    *aiassist.Adapter
	log        logger.Logger
}

// New creates an Orchestrator from its engines. The adapter may be nil
// when AI assistance is not configured.
func New(scorer *scoring.Engine, matchEngine *matcher.Engine, adapter *aiassist.Adapter) *Orchestrator {
	return &Orchestrator{
		normalizer: normalizer.New(),
		scorer:     scorer,
		matcher:    matchEngine,
		adapter:    adapter,
		log:        logger.WithComponent("reconciler"),
	}
}

// Reconcile executes one run for the project. Record-scoped problems
// accumulate into the result's diagnostics; only configuration errors
// fail the run. On success the project advances to completed; on error
// its status is left unchanged so a retry is safe.
func (o *Orchestrator) Reconcile(
	ctx context.Context,
	project *models.ReconciliationProject,
	invoices []*models.FakturPajakRecord,
	certificates []*models.BuktiPotongRecord,
	bankTransactions []*models.RekeningKoranRecord,
	opts Options,
) (*models.ReconciliationResult, error) {
	if err := project.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "project", err.Error(), err)
	}

	companyTaxID, err := normalizer.NormalizeTaxID(project.CompanyTaxID)
	if err != nil || companyTaxID == "" {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "company_tax_id",
			project.CompanyTaxID, err)
	}

	matchEngine := o.matcher
	if opts.MinConfidence > 0 {
		override := *o.matcher.Config()
		override.MinConfidence = opts.MinConfidence
		matchEngine, err = matcher.NewEngine(&override)
		if err != nil {
			return nil, err
		}
	}

	if project.Status == models.StatusDraft {
		project.Status = models.StatusInProgress
	}

	run := &runState{
		project:      project,
		companyTaxID: companyTaxID,
	}

	o.log.WithFields(logger.Fields{
		"project":      project.ID,
		"invoices":     len(invoices),
		"certificates": len(certificates),
		"bank_rows":    len(bankTransactions),
		"use_ai":       opts.UseAI,
	}).Info("starting reconciliation run")

	pointA, pointB := o.splitInvoices(run, invoices)
	pointC := o.normalizeCertificates(run, certificates)
	pointE := o.normalizeBankRows(run, bankTransactions)

	pointA = o.filterPeriod(run, pointA)
	pointB = o.filterPeriod(run, pointB)
	pointC = o.filterPeriod(run, pointC)
	pointE = o.filterPeriod(run, pointE)

	matchesAC, remA, remC, err := o.runPass(ctx, run, matchEngine, pointA, pointC, opts.UseAI)
	if err != nil {
		return nil, err
	}

	matchesBE, remB, remE, err := o.runPass(ctx, run, matchEngine, pointB, pointE, opts.UseAI)
	if err != nil {
		return nil, err
	}

	result := &models.ReconciliationResult{
		ProjectID: project.ID,
		Counts: models.PointCounts{
			PointA: len(pointA),
			PointB: len(pointB),
			PointC: len(pointC),
			PointE: len(pointE),
		},
		Matches: models.MatchLists{
			PointAVsC: matchesAC,
			PointBVsE: matchesBE,
		},
		Mismatches: models.MismatchLists{
			PointAUnmatched: remA,
			PointBUnmatched: remB,
			PointCUnmatched: remC,
			PointEUnmatched: remE,
		},
		Diagnostics: run.diagnostics,
		ProcessedAt: time.Now().UTC(),
	}
	result.Summary = summarize(result)

	if err := project.Complete(); err != nil {
		return nil, errors.InternalError("project completion", err)
	}

	o.log.WithFields(logger.Fields{
		"project":     project.ID,
		"matched":     result.Summary.TotalMatched,
		"unmatched":   result.Summary.TotalUnmatched,
		"match_rate":  result.Summary.MatchRate,
		"diagnostics": len(result.Diagnostics),
	}).Info("reconciliation run completed")

	return result, nil
}

// runState accumulates the diagnostics of one Reconcile call.
type runState struct {
	project      *models.ReconciliationProject
	companyTaxID string
	diagnostics  []models.Diagnostic
}

func (rs *runState) addDiagnostic(err *errors.ReconError) {
	rs.diagnostics = append(rs.diagnostics, models.Diagnostic{
		Category: string(err.Category),
		Code:     string(err.Code),
		RecordID: err.RecordID(),
		Message:  err.Message,
	})
}

// splitInvoices assigns every Faktur Pajak record to Point A or Point B
// by comparing its party tax IDs to the company NPWP. A record matching
// neither or both sides is ambiguous: it is reported and skipped, and
// the run continues.
func (o *Orchestrator) splitInvoices(run *runState, invoices []*models.FakturPajakRecord) (pointA, pointB []*models.NormalizedRecord) {
	orderA, orderB := 0, 0

	for _, raw := range invoices {
		sellerID, sellerErr := normalizer.NormalizeTaxID(raw.SellerTaxID)
		buyerID, buyerErr := normalizer.NormalizeTaxID(raw.BuyerTaxID)

		if sellerErr != nil {
			run.addDiagnostic(errors.NormalizationError(
				errors.CodeInvalidTaxID, raw.ID, "seller_tax_id", raw.SellerTaxID, sellerErr))
			continue
		}
		if buyerErr != nil {
			run.addDiagnostic(errors.NormalizationError(
				errors.CodeInvalidTaxID, raw.ID, "buyer_tax_id", raw.BuyerTaxID, buyerErr))
			continue
		}

		isSeller := sellerID == run.companyTaxID
		isBuyer := buyerID == run.companyTaxID

		if isSeller == isBuyer {
			run.addDiagnostic(errors.SplitAmbiguityError(raw.ID, sellerID, buyerID, run.companyTaxID))
			continue
		}

		if isSeller {
			rec, err := o.normalizer.FakturPajak(raw, models.PointA, orderA)
			if err != nil {
				run.addDiagnostic(asRecon(err))
				continue
			}
			pointA = append(pointA, rec)
			orderA++
		} else {
			rec, err := o.normalizer.FakturPajak(raw, models.PointB, orderB)
			if err != nil {
				run.addDiagnostic(asRecon(err))
				continue
			}
			pointB = append(pointB, rec)
			orderB++
		}
	}

	return pointA, pointB
}

func (o *Orchestrator) normalizeCertificates(run *runState, certificates []*models.BuktiPotongRecord) []*models.NormalizedRecord {
	var out []*models.NormalizedRecord
	for _, raw := range certificates {
		rec, err := o.normalizer.BuktiPotong(raw, len(out))
		if err != nil {
			run.addDiagnostic(asRecon(err))
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (o *Orchestrator) normalizeBankRows(run *runState, rows []*models.RekeningKoranRecord) []*models.NormalizedRecord {
	var out []*models.NormalizedRecord
	for _, raw := range rows {
		rec, err := o.normalizer.RekeningKoran(raw, len(out))
		if err != nil {
			run.addDiagnostic(asRecon(err))
			continue
		}
		out = append(out, rec)
	}
	return out
}

// filterPeriod keeps the records dated inside the project's filing
// period, inclusive on both ends. Out-of-period records are reported as
// diagnostics and excluded from matching.
func (o *Orchestrator) filterPeriod(run *runState, records []*models.NormalizedRecord) []*models.NormalizedRecord {
	kept := records[:0]
	order := 0
	for _, rec := range records {
		if rec.Date.Before(run.project.PeriodStart) || rec.Date.After(run.project.PeriodEnd) {
			run.addDiagnostic(errors.New(errors.CategoryNormalization, errors.CodeOutOfPeriod,
				"record "+rec.ID+" dated "+rec.Date.Format("2006-01-02")+" is outside the filing period").
				WithContext("record_id", rec.ID))
			continue
		}
		rec.InputOrder = order
		order++
		kept = append(kept, rec)
	}
	return kept
}

// runPass executes one normalize-score-hint-resolve pass between two
// record sets.
func (o *Orchestrator) runPass(
	ctx context.Context,
	run *runState,
	matchEngine *matcher.Engine,
	left, right []*models.NormalizedRecord,
	useAI bool,
) ([]*models.Match, []*models.Remainder, []*models.Remainder, error) {
	candidates, err := o.scorer.GenerateCandidates(ctx, left, right)
	if err != nil {
		return nil, nil, nil, errors.InternalError("candidate generation", err)
	}

	if useAI && o.adapter != nil {
		for _, diag := range o.adapter.Suggest(ctx, candidates) {
			run.addDiagnostic(diag)
		}
	}

	matches, remLeft, remRight := matchEngine.Resolve(candidates, left, right)
	return matches, remLeft, remRight, nil
}

// summarize computes the aggregate statistics. With no records on either
// side the rate is an explicit zero with the NoData flag set, never NaN.
func summarize(result *models.ReconciliationResult) models.Summary {
	matched := len(result.Matches.PointAVsC) + len(result.Matches.PointBVsE)
	unmatched := len(result.Mismatches.PointAUnmatched) +
		len(result.Mismatches.PointBUnmatched) +
		len(result.Mismatches.PointCUnmatched) +
		len(result.Mismatches.PointEUnmatched)

	summary := models.Summary{
		TotalMatched:   matched,
		TotalUnmatched: unmatched,
	}

	if matched+unmatched == 0 {
		summary.NoData = true
		return summary
	}

	summary.MatchRate = float64(matched) / float64(matched+unmatched)
	return summary
}

func asRecon(err error) *errors.ReconError {
	if reconErr, ok := errors.AsReconError(err); ok {
		return reconErr
	}
	return errors.InternalError("normalization", err)
}
