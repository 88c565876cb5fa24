package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SourcePoint identifies which reconciliation category a record belongs to.
type SourcePoint string

const (
	// PointA represents output invoices (Faktur Pajak Keluaran, seller side)
	PointA SourcePoint = "A"
	// PointB represents input invoices (Faktur Pajak Masukan, buyer side)
	PointB SourcePoint = "B"
	// PointC represents withholding tax certificates (Bukti Potong)
	PointC SourcePoint = "C"
	// PointE represents bank statement transactions (Rekening Koran)
	PointE SourcePoint = "E"
)

// String returns the string representation of SourcePoint
func (sp SourcePoint) String() string {
	return string(sp)
}

// IsValid checks if the source point is one of the known categories
func (sp SourcePoint) IsValid() bool {
	switch sp {
	case PointA, PointB, PointC, PointE:
		return true
	}
	return false
}

// DocumentCategory identifies the OCR document type a raw record came from.
type DocumentCategory string

const (
	CategoryFakturPajak   DocumentCategory = "faktur_pajak"
	CategoryBuktiPotong   DocumentCategory = "bukti_potong"
	CategoryRekeningKoran DocumentCategory = "rekening_koran"
)

// FakturPajakRecord holds the raw extracted fields of a VAT invoice
// (Faktur Pajak) as delivered by the OCR collaborator. All values are the
// literal strings read from the document; nothing is parsed yet.
type FakturPajakRecord struct {
	ID            string `json:"id"`
	InvoiceNumber string `json:"invoice_number"`
	InvoiceDate   string `json:"invoice_date"`
	SellerName    string `json:"seller_name"`
	SellerTaxID   string `json:"seller_tax_id"`
	BuyerName     string `json:"buyer_name"`
	BuyerTaxID    string `json:"buyer_tax_id"`
	Amount        string `json:"amount"`
}

// Fields returns the record as a flat field map for diagnostics and
// unmatched-record projections.
func (r *FakturPajakRecord) Fields() map[string]string {
	return map[string]string{
		"id":             r.ID,
		"invoice_number": r.InvoiceNumber,
		"invoice_date":   r.InvoiceDate,
		"seller_name":    r.SellerName,
		"seller_tax_id":  r.SellerTaxID,
		"buyer_name":     r.BuyerName,
		"buyer_tax_id":   r.BuyerTaxID,
		"amount":         r.Amount,
	}
}

// BuktiPotongRecord holds the raw extracted fields of a withholding tax
// certificate (Bukti Potong).
type BuktiPotongRecord struct {
	ID                string `json:"id"`
	CertificateNumber string `json:"certificate_number"`
	Date              string `json:"date"`
	IssuerName        string `json:"issuer_name"`
	IssuerTaxID       string `json:"issuer_tax_id"`
	Amount            string `json:"amount"`
}

// Fields returns the record as a flat field map.
func (r *BuktiPotongRecord) Fields() map[string]string {
	return map[string]string{
		"id":                 r.ID,
		"certificate_number": r.CertificateNumber,
		"date":               r.Date,
		"issuer_name":        r.IssuerName,
		"issuer_tax_id":      r.IssuerTaxID,
		"amount":             r.Amount,
	}
}

// RekeningKoranRecord holds the raw extracted fields of a single bank
// statement transaction (Rekening Koran). Amount may carry debit
// parenthesis notation, e.g. "(1.500.000,00)".
type RekeningKoranRecord struct {
	ID               string `json:"id"`
	Date             string `json:"date"`
	Description      string `json:"description"`
	Reference        string `json:"reference"`
	CounterpartyName string `json:"counterparty_name"`
	Amount           string `json:"amount"`
}

// Fields returns the record as a flat field map.
func (r *RekeningKoranRecord) Fields() map[string]string {
	return map[string]string{
		"id":                r.ID,
		"date":              r.Date,
		"description":       r.Description,
		"reference":         r.Reference,
		"counterparty_name": r.CounterpartyName,
		"amount":            r.Amount,
	}
}

// NormalizedRecord is the canonical, fully typed form of one document
// record. It is immutable once created and owned exclusively by the
// matching pass that created it for the duration of one reconciliation run.
type NormalizedRecord struct {
	ID                string            `json:"id"`
	SourcePoint       SourcePoint       `json:"source_point"`
	Date              time.Time         `json:"date"`
	Amount            decimal.Decimal   `json:"amount"`
	CounterpartyName  string            `json:"counterparty_name"`
	CounterpartyTaxID string            `json:"counterparty_tax_id,omitempty"`
	ReferenceNumber   string            `json:"reference_number,omitempty"`
	Raw               map[string]string `json:"raw,omitempty"`

	// InputOrder is the record's position in the original input slice,
	// used as the final deterministic tie-break during assignment.
	InputOrder int `json:"-"`
}

// Validate performs basic validation on the NormalizedRecord
func (nr *NormalizedRecord) Validate() error {
	if strings.TrimSpace(nr.ID) == "" {
		return fmt.Errorf("record ID cannot be empty")
	}

	if !nr.SourcePoint.IsValid() {
		return fmt.Errorf("invalid source point: %s", nr.SourcePoint)
	}

	if nr.Date.IsZero() {
		return fmt.Errorf("record date cannot be zero")
	}

	return nil
}

// String returns a string representation of the NormalizedRecord
func (nr *NormalizedRecord) String() string {
	return fmt.Sprintf("NormalizedRecord{ID: %s, Point: %s, Amount: %s, Date: %s, Counterparty: %s}",
		nr.ID, nr.SourcePoint, nr.Amount.String(), nr.Date.Format("2006-01-02"), nr.CounterpartyName)
}

// MarshalJSON implements custom JSON marshaling so amounts and dates
// serialize as plain strings.
func (nr *NormalizedRecord) MarshalJSON() ([]byte, error) {
	type Alias NormalizedRecord
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Amount: nr.Amount.String(),
		Date:   nr.Date.Format("2006-01-02"),
		Alias:  (*Alias)(nr),
	})
}

// ComponentScores holds the four independent sub-scores computed for a
// candidate pair, each in [0,1]. They are retained on the final Match so
// the composite can always be audited.
type ComponentScores struct {
	Amount    float64 `json:"amount"`
	Date      float64 `json:"date"`
	Vendor    float64 `json:"vendor"`
	Reference float64 `json:"reference"`
}

// AIHint carries an adapter suggestion for a candidate pair. Hints are
// advisory: they are recorded for audit and may nudge classification by
// at most one tier, never the acceptance decision itself.
type AIHint struct {
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale,omitempty"`
}

// CandidatePair is the ephemeral scoring unit for one (left, right) record
// combination. Pairs are generated and discarded within a single matching
// pass and never persisted.
type CandidatePair struct {
	Left      *NormalizedRecord `json:"-"`
	Right     *NormalizedRecord `json:"-"`
	LeftID    string            `json:"left_id"`
	RightID   string            `json:"right_id"`
	Scores    ComponentScores   `json:"scores"`
	Composite float64           `json:"composite"`
	Hint      *AIHint           `json:"ai_hint,omitempty"`
}

// MatchType represents the confidence tier of a finalized match.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchFuzzy   MatchType = "fuzzy"
	MatchPartial MatchType = "partial"
)

// String returns the string representation of MatchType
func (mt MatchType) String() string {
	return string(mt)
}

// Match is the immutable output of a finalized assignment. A Match always
// references exactly one left and one right record; no record appears in
// more than one Match within the same pass.
type Match struct {
	ID         string          `json:"id"`
	LeftID     string          `json:"left_id"`
	RightID    string          `json:"right_id"`
	Type       MatchType       `json:"match_type"`
	Confidence float64         `json:"match_confidence"`
	Scores     ComponentScores `json:"component_scores"`
	Hint       *AIHint         `json:"ai_hint,omitempty"`

	// Left and Right retain the matched records for report rendering.
	Left  *NormalizedRecord `json:"-"`
	Right *NormalizedRecord `json:"-"`
}

// RemainderReason explains why a record ended a pass unmatched.
type RemainderReason string

const (
	// ReasonBelowThreshold means no candidate involving the record scored
	// at or above the minimum confidence.
	ReasonBelowThreshold RemainderReason = "no_candidate_above_threshold"
	// ReasonLostTieBreak means the record had eligible candidates but every
	// counterpart was consumed by a higher-ranked pair.
	ReasonLostTieBreak RemainderReason = "lost_tiebreak"
)

// Remainder is a record that received no Match after a pass completed,
// tagged with the reason.
type Remainder struct {
	Record *NormalizedRecord `json:"record"`
	Reason RemainderReason   `json:"reason"`
}

// ProjectStatus tracks a reconciliation project's lifecycle.
type ProjectStatus string

const (
	StatusDraft      ProjectStatus = "draft"
	StatusInProgress ProjectStatus = "in_progress"
	StatusCompleted  ProjectStatus = "completed"
)

// ReconciliationProject is the long-lived entity owning reconciliation
// runs for one filing period. Each re-run produces a fresh result that
// supersedes the prior one; the project itself is mutated only by the
// orchestrator's status transitions.
type ReconciliationProject struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	PeriodStart  time.Time     `json:"period_start"`
	PeriodEnd    time.Time     `json:"period_end"`
	CompanyTaxID string        `json:"company_tax_id"`
	Status       ProjectStatus `json:"status"`
}

// Validate performs basic validation on the project
func (p *ReconciliationProject) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project name cannot be empty")
	}

	if strings.TrimSpace(p.CompanyTaxID) == "" {
		return fmt.Errorf("project company tax ID cannot be empty")
	}

	if p.PeriodStart.IsZero() || p.PeriodEnd.IsZero() {
		return fmt.Errorf("project filing period is required")
	}

	if p.PeriodStart.After(p.PeriodEnd) {
		return fmt.Errorf("period start %s is after period end %s",
			p.PeriodStart.Format("2006-01-02"), p.PeriodEnd.Format("2006-01-02"))
	}

	return nil
}

// Complete transitions the project to completed. Completing an already
// completed project (a re-run) is a no-op.
func (p *ReconciliationProject) Complete() error {
	switch p.Status {
	case StatusDraft, StatusInProgress, StatusCompleted:
		p.Status = StatusCompleted
		return nil
	default:
		return fmt.Errorf("cannot complete project in status %q", p.Status)
	}
}

// Diagnostic is one record-scoped data quality finding accumulated during
// a run. Diagnostics never abort the run; they are attached to the result
// so partial data issues stay visible.
type Diagnostic struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	RecordID string `json:"record_id,omitempty"`
	Message  string `json:"message"`
}

// PointCounts reports how many normalized records entered each point.
type PointCounts struct {
	PointA int `json:"point_a"`
	PointB int `json:"point_b"`
	PointC int `json:"point_c"`
	PointE int `json:"point_e"`
}

// MatchLists groups the two per-pass match lists.
type MatchLists struct {
	PointAVsC []*Match `json:"point_a_vs_c"`
	PointBVsE []*Match `json:"point_b_vs_e"`
}

// MismatchLists groups the four remainder lists.
type MismatchLists struct {
	PointAUnmatched []*Remainder `json:"point_a_unmatched"`
	PointBUnmatched []*Remainder `json:"point_b_unmatched"`
	PointCUnmatched []*Remainder `json:"point_c_unmatched"`
	PointEUnmatched []*Remainder `json:"point_e_unmatched"`
}

// Summary provides aggregate statistics for a reconciliation run. NoData
// is the explicit "both sides empty" state; MatchRate is 0 (never NaN) in
// that case.
type Summary struct {
	TotalMatched   int     `json:"total_matched"`
	TotalUnmatched int     `json:"total_unmatched"`
	MatchRate      float64 `json:"match_rate"`
	NoData         bool    `json:"no_data"`
}

// ReconciliationResult is the durable output of one orchestrator run.
// It is read-only to downstream export and report consumers.
type ReconciliationResult struct {
	ProjectID   string        `json:"project_id"`
	Counts      PointCounts   `json:"counts"`
	Matches     MatchLists    `json:"matches"`
	Mismatches  MismatchLists `json:"mismatches"`
	Summary     Summary       `json:"summary"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
	ProcessedAt time.Time     `json:"processed_at"`
}

// TotalRecords returns the number of normalized records that entered the run.
func (r *ReconciliationResult) TotalRecords() int {
	return r.Counts.PointA + r.Counts.PointB + r.Counts.PointC + r.Counts.PointE
}
