package normalizer

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tax-reconciliation-service/internal/models"
	"tax-reconciliation-service/pkg/errors"
	"tax-reconciliation-service/pkg/logger"
)

// dateLayouts are the accepted input date formats, tried in order. The
// two-digit-year form must come after the four-digit one so "02/01/2024"
// is not truncated.
var dateLayouts = []string{
	"02-Jan-2006",
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
	"02/01/06",
}

// Normalizer converts raw OCR record variants into NormalizedRecords.
// It is stateless apart from its logger; the same raw input always
// produces an identical normalized record.
type Normalizer struct {
	log logger.Logger
}

// New creates a Normalizer
func New() *Normalizer {
	return &Normalizer{
		log: logger.WithComponent("normalizer"),
	}
}

// FakturPajak normalizes a VAT invoice for the given point. The
// counterparty is the other party on the invoice: the buyer for Point A
// (the company sold) and the seller for Point B (the company bought).
func (n *Normalizer) FakturPajak(rec *models.FakturPajakRecord, point models.SourcePoint, order int) (*models.NormalizedRecord, error) {
	date, err := ParseDate(rec.InvoiceDate)
	if err != nil {
		return nil, errors.NormalizationError(errors.CodeInvalidDate, rec.ID, "invoice_date", rec.InvoiceDate, err)
	}

	amount, err := ParseAmount(rec.Amount)
	if err != nil {
		return nil, errors.NormalizationError(errors.CodeInvalidAmount, rec.ID, "amount", rec.Amount, err)
	}

	counterpartyName := rec.BuyerName
	counterpartyRawTaxID := rec.BuyerTaxID
	taxIDField := "buyer_tax_id"
	if point == models.PointB {
		counterpartyName = rec.SellerName
		counterpartyRawTaxID = rec.SellerTaxID
		taxIDField = "seller_tax_id"
	}

	taxID, err := NormalizeTaxID(counterpartyRawTaxID)
	if err != nil {
		return nil, errors.NormalizationError(errors.CodeInvalidTaxID, rec.ID, taxIDField, counterpartyRawTaxID, err)
	}

	return &models.NormalizedRecord{
		ID:                rec.ID,
		SourcePoint:       point,
		Date:              date,
		Amount:            amount,
		CounterpartyName:  strings.TrimSpace(counterpartyName),
		CounterpartyTaxID: taxID,
		ReferenceNumber:   strings.TrimSpace(rec.InvoiceNumber),
		Raw:               rec.Fields(),
		InputOrder:        order,
	}, nil
}

// BuktiPotong normalizes a withholding certificate into a Point C record.
func (n *Normalizer) BuktiPotong(rec *models.BuktiPotongRecord, order int) (*models.NormalizedRecord, error) {
	date, err := ParseDate(rec.Date)
	if err != nil {
		return nil, errors.NormalizationError(errors.CodeInvalidDate, rec.ID, "date", rec.Date, err)
	}

	amount, err := ParseAmount(rec.Amount)
	if err != nil {
		return nil, errors.NormalizationError(errors.CodeInvalidAmount, rec.ID, "amount", rec.Amount, err)
	}

	taxID, err := NormalizeTaxID(rec.IssuerTaxID)
	if err != nil {
		return nil, errors.NormalizationError(errors.CodeInvalidTaxID, rec.ID, "issuer_tax_id", rec.IssuerTaxID, err)
	}

	return &models.NormalizedRecord{
		ID:                rec.ID,
		SourcePoint:       models.PointC,
		Date:              date,
		Amount:            amount,
		CounterpartyName:  strings.TrimSpace(rec.IssuerName),
		CounterpartyTaxID: taxID,
		ReferenceNumber:   strings.TrimSpace(rec.CertificateNumber),
		Raw:               rec.Fields(),
		InputOrder:        order,
	}, nil
}

// RekeningKoran normalizes a bank statement transaction into a Point E
// record. Bank rows have no tax ID; the counterparty name falls back to
// the free-text description when the dedicated field is empty.
func (n *Normalizer) RekeningKoran(rec *models.RekeningKoranRecord, order int) (*models.NormalizedRecord, error) {
	date, err := ParseDate(rec.Date)
	if err != nil {
		return nil, errors.NormalizationError(errors.CodeInvalidDate, rec.ID, "date", rec.Date, err)
	}

	amount, err := ParseAmount(rec.Amount)
	if err != nil {
		return nil, errors.NormalizationError(errors.CodeInvalidAmount, rec.ID, "amount", rec.Amount, err)
	}

	name := strings.TrimSpace(rec.CounterpartyName)
	if name == "" {
		name = strings.TrimSpace(rec.Description)
	}

	return &models.NormalizedRecord{
		ID:               rec.ID,
		SourcePoint:      models.PointE,
		Date:             date,
		Amount:           amount,
		CounterpartyName: name,
		ReferenceNumber:  strings.TrimSpace(rec.Reference),
		Raw:              rec.Fields(),
		InputOrder:       order,
	}, nil
}

// ParseDate parses a date string in any of the accepted formats. The
// result is truncated to the date in UTC so time-of-day never influences
// date proximity scoring.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errors.New(errors.CategoryNormalization, errors.CodeInvalidDate, "empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, errors.New(errors.CategoryNormalization, errors.CodeInvalidDate,
		"date does not match any supported format")
}

var (
	currencyPrefixRe = regexp.MustCompile(`(?i)^(rp\.?|idr)\s*`)
	thousandsRe      = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+(,\d+)?$`)
	plainAmountRe    = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	commaDecimalRe   = regexp.MustCompile(`^-?\d+,\d+$`)
)

// ParseAmount parses an Indonesian-formatted currency string into a
// decimal. Accepted notations:
//
//	Rp 1.500.000,00    currency prefix, dot thousands, decimal comma
//	IDR 1500000        currency prefix, plain integer
//	(1.500.000,00)     parentheses mark a debit (negative)
//	1500000.50         plain decimal fallback
//
// Zero is a valid amount and is distinct from an unparsable one.
func ParseAmount(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, errors.New(errors.CategoryNormalization, errors.CodeInvalidAmount, "empty amount")
	}

	negative := false
	if strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") {
		negative = true
		trimmed = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	}

	trimmed = strings.TrimSpace(currencyPrefixRe.ReplaceAllString(trimmed, ""))
	if trimmed == "" {
		return decimal.Zero, errors.New(errors.CategoryNormalization, errors.CodeInvalidAmount,
			"amount contains only a currency prefix")
	}

	if strings.HasPrefix(trimmed, "-") {
		negative = !negative
		trimmed = trimmed[1:]
	}

	var canonical string
	switch {
	case thousandsRe.MatchString(trimmed):
		// Indonesian grouping: drop dots, comma becomes the decimal point.
		canonical = strings.ReplaceAll(trimmed, ".", "")
		canonical = strings.ReplaceAll(canonical, ",", ".")
	case commaDecimalRe.MatchString(trimmed):
		canonical = strings.ReplaceAll(trimmed, ",", ".")
	case plainAmountRe.MatchString(trimmed):
		canonical = trimmed
	default:
		return decimal.Zero, errors.New(errors.CategoryNormalization, errors.CodeInvalidAmount,
			"amount does not match any supported notation")
	}

	amount, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, errors.CategoryNormalization, errors.CodeInvalidAmount,
			"amount is not a valid decimal")
	}

	if negative {
		amount = amount.Neg()
	}

	return amount, nil
}

var taxIDStripRe = regexp.MustCompile(`[.\-\s]`)

// NormalizeTaxID strips NPWP formatting punctuation and validates that
// only digits remain. An empty input is allowed and yields an empty
// canonical ID; whether a tax ID is required is the caller's decision.
func NormalizeTaxID(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", nil
	}

	canonical := taxIDStripRe.ReplaceAllString(trimmed, "")
	for _, r := range canonical {
		if r < '0' || r > '9' {
			return "", errors.New(errors.CategoryNormalization, errors.CodeInvalidTaxID,
				"tax ID contains non-digit characters")
		}
	}

	return canonical, nil
}
