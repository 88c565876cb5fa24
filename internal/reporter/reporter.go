// Package reporter renders reconciliation results for export and review.
//
// Supported output formats:
//   - Console: human-readable summary for terminal display
//   - JSON: the structured projection consumed by export collaborators
//   - CSV: flat match list for spreadsheet review
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tax-reconciliation-service/internal/models"
	"tax-reconciliation-service/pkg/errors"
	"tax-reconciliation-service/pkg/logger"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// Reporter renders ReconciliationResults.
type Reporter struct {
	log logger.Logger
}

// New creates a Reporter.
func New() *Reporter {
	return &Reporter{
		log: logger.WithComponent("reporter"),
	}
}

// Render writes the result to w in the requested format.
func (r *Reporter) Render(w io.Writer, result *models.ReconciliationResult, format OutputFormat) error {
	switch format {
	case FormatConsole:
		return r.renderConsole(w, result)
	case FormatJSON:
		return r.renderJSON(w, result)
	case FormatCSV:
		return r.renderCSV(w, result)
	default:
		return errors.ConfigurationError(errors.CodeInvalidConfig, "output_format", string(format), nil)
	}
}

// MatchDetail is the per-match projection exposed to export consumers.
type MatchDetail struct {
	ID              string  `json:"id"`
	MatchType       string  `json:"match_type"`
	MatchConfidence float64 `json:"match_confidence"`
	Details         struct {
		ReferenceNumber  string  `json:"reference_number"`
		Date             string  `json:"date"`
		VendorName       string  `json:"vendor_name"`
		Amount           string  `json:"amount"`
		DateConfidence   float64 `json:"date_confidence"`
		AmountConfidence float64 `json:"amount_confidence"`
	} `json:"details"`
}

// unmatchedDetail projects a remainder back to its original raw fields.
type unmatchedDetail struct {
	Reason string            `json:"reason"`
	Record map[string]string `json:"record"`
}

// jsonReport is the full export document.
type jsonReport struct {
	ProjectID string             `json:"project_id"`
	Counts    models.PointCounts `json:"counts"`
	Matches   struct {
		PointAVsC []MatchDetail `json:"point_a_vs_c"`
		PointBVsE []MatchDetail `json:"point_b_vs_e"`
	} `json:"matches"`
	Mismatches struct {
		PointAUnmatched []unmatchedDetail `json:"point_a_unmatched"`
		PointBUnmatched []unmatchedDetail `json:"point_b_unmatched"`
		PointCUnmatched []unmatchedDetail `json:"point_c_unmatched"`
		PointEUnmatched []unmatchedDetail `json:"point_e_unmatched"`
	} `json:"mismatches"`
	Summary     models.Summary      `json:"summary"`
	Diagnostics []models.Diagnostic `json:"diagnostics,omitempty"`
	ProcessedAt string              `json:"processed_at"`
}

// BuildMatchDetail projects one Match into the export shape. The left
// record supplies the document-side fields shown to the user.
func BuildMatchDetail(m *models.Match) MatchDetail {
	detail := MatchDetail{
		ID:              m.ID,
		MatchType:       string(m.Type),
		MatchConfidence: m.Confidence,
	}

	if m.Left != nil {
		detail.Details.ReferenceNumber = m.Left.ReferenceNumber
		detail.Details.Date = m.Left.Date.Format("2006-01-02")
		detail.Details.VendorName = m.Left.CounterpartyName
		detail.Details.Amount = m.Left.Amount.String()
	}
	detail.Details.DateConfidence = m.Scores.Date
	detail.Details.AmountConfidence = m.Scores.Amount

	return detail
}

func buildUnmatched(remainders []*models.Remainder) []unmatchedDetail {
	out := make([]unmatchedDetail, 0, len(remainders))
	for _, rem := range remainders {
		out = append(out, unmatchedDetail{
			Reason: string(rem.Reason),
			Record: rem.Record.Raw,
		})
	}
	return out
}

func (r *Reporter) renderJSON(w io.Writer, result *models.ReconciliationResult) error {
	report := jsonReport{
		ProjectID:   result.ProjectID,
		Counts:      result.Counts,
		Summary:     result.Summary,
		Diagnostics: result.Diagnostics,
		ProcessedAt: result.ProcessedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	report.Matches.PointAVsC = make([]MatchDetail, 0, len(result.Matches.PointAVsC))
	for _, m := range result.Matches.PointAVsC {
		report.Matches.PointAVsC = append(report.Matches.PointAVsC, BuildMatchDetail(m))
	}
	report.Matches.PointBVsE = make([]MatchDetail, 0, len(result.Matches.PointBVsE))
	for _, m := range result.Matches.PointBVsE {
		report.Matches.PointBVsE = append(report.Matches.PointBVsE, BuildMatchDetail(m))
	}

	report.Mismatches.PointAUnmatched = buildUnmatched(result.Mismatches.PointAUnmatched)
	report.Mismatches.PointBUnmatched = buildUnmatched(result.Mismatches.PointBUnmatched)
	report.Mismatches.PointCUnmatched = buildUnmatched(result.Mismatches.PointCUnmatched)
	report.Mismatches.PointEUnmatched = buildUnmatched(result.Mismatches.PointEUnmatched)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (r *Reporter) renderConsole(w io.Writer, result *models.ReconciliationResult) error {
	var b strings.Builder

	b.WriteString("RECONCILIATION REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "Project:      %s\n", result.ProjectID)
	fmt.Fprintf(&b, "Processed at: %s\n\n", result.ProcessedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "Records:  A=%d  B=%d  C=%d  E=%d\n",
		result.Counts.PointA, result.Counts.PointB, result.Counts.PointC, result.Counts.PointE)

	if result.Summary.NoData {
		b.WriteString("No records entered matching.\n")
	} else {
		fmt.Fprintf(&b, "Matched:   %d\n", result.Summary.TotalMatched)
		fmt.Fprintf(&b, "Unmatched: %d\n", result.Summary.TotalUnmatched)
		fmt.Fprintf(&b, "Match rate: %.1f%%\n", result.Summary.MatchRate*100)
	}

	writePass := func(title string, matches []*models.Match) {
		if len(matches) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s\n%s\n", title, strings.Repeat("-", 60))
		for _, m := range matches {
			detail := BuildMatchDetail(m)
			fmt.Fprintf(&b, "  [%s] %-8s conf=%.3f  %s  %s  %s\n",
				m.LeftID+" ~ "+m.RightID, detail.MatchType, m.Confidence,
				detail.Details.Date, detail.Details.VendorName, detail.Details.Amount)
		}
	}

	writePass("Point A vs Point C", result.Matches.PointAVsC)
	writePass("Point B vs Point E", result.Matches.PointBVsE)

	writeRemainders := func(title string, remainders []*models.Remainder) {
		if len(remainders) == 0 {
			return
		}
		fmt.Fprintf(&b, "\nUnmatched %s\n%s\n", title, strings.Repeat("-", 60))
		for _, rem := range remainders {
			fmt.Fprintf(&b, "  %s  (%s)\n", rem.Record.ID, rem.Reason)
		}
	}

	writeRemainders("Point A", result.Mismatches.PointAUnmatched)
	writeRemainders("Point B", result.Mismatches.PointBUnmatched)
	writeRemainders("Point C", result.Mismatches.PointCUnmatched)
	writeRemainders("Point E", result.Mismatches.PointEUnmatched)

	if len(result.Diagnostics) > 0 {
		fmt.Fprintf(&b, "\nDiagnostics (%d)\n%s\n", len(result.Diagnostics), strings.Repeat("-", 60))
		for _, d := range result.Diagnostics {
			fmt.Fprintf(&b, "  [%s/%s] %s\n", d.Category, d.Code, d.Message)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Reporter) renderCSV(w io.Writer, result *models.ReconciliationResult) error {
	writer := csv.NewWriter(w)

	header := []string{"pass", "match_id", "left_id", "right_id", "match_type",
		"match_confidence", "reference_number", "date", "vendor_name", "amount"}
	if err := writer.Write(header); err != nil {
		return err
	}

	writeMatches := func(pass string, matches []*models.Match) error {
		for _, m := range matches {
			detail := BuildMatchDetail(m)
			row := []string{
				pass, m.ID, m.LeftID, m.RightID, detail.MatchType,
				strconv.FormatFloat(m.Confidence, 'f', 4, 64),
				detail.Details.ReferenceNumber,
				detail.Details.Date,
				detail.Details.VendorName,
				detail.Details.Amount,
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writeMatches("a_vs_c", result.Matches.PointAVsC); err != nil {
		return err
	}
	if err := writeMatches("b_vs_e", result.Matches.PointBVsE); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}
