package input

import (
	"os"
	"path/filepath"
	"testing"

	"tax-reconciliation-service/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestLoadFakturPajak(t *testing.T) {
	path := writeFile(t, "invoices.json", `[
		{
			"id": "fp-1",
			"invoice_number": "010.000-24.00000001",
			"invoice_date": "15-Jan-2024",
			"seller_name": "PT Maju Jaya",
			"seller_tax_id": "01.234.567.8-901.000",
			"buyer_name": "CV Berkah",
			"buyer_tax_id": "02.345.678.9-012.000",
			"amount": "Rp 11.000.000,00"
		}
	]`)

	records, err := NewLoader().LoadFakturPajak(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].ID != "fp-1" || records[0].InvoiceNumber != "010.000-24.00000001" {
		t.Errorf("record fields not loaded: %+v", records[0])
	}
	// raw strings pass through untouched
	if records[0].Amount != "Rp 11.000.000,00" {
		t.Errorf("amount = %q, want the literal string", records[0].Amount)
	}
}

func TestLoadBuktiPotong(t *testing.T) {
	path := writeFile(t, "certs.json", `[
		{"id": "bp-1", "certificate_number": "BP-1", "date": "20/01/2024",
		 "issuer_name": "PT Sumber", "issuer_tax_id": "", "amount": "250.000"}
	]`)

	records, err := NewLoader().LoadBuktiPotong(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].CertificateNumber != "BP-1" {
		t.Errorf("records = %+v", records)
	}
}

func TestLoadRekeningKoran(t *testing.T) {
	path := writeFile(t, "bank.json", `[
		{"id": "rk-1", "date": "2024-01-22", "description": "TRF MASUK",
		 "reference": "TRX1", "counterparty_name": "PT Maju", "amount": "(500.000,00)"}
	]`)

	records, err := NewLoader().LoadRekeningKoran(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Reference != "TRX1" {
		t.Errorf("records = %+v", records)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader().LoadFakturPajak(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}

	reconErr, ok := errors.AsReconError(err)
	if !ok || reconErr.Code != errors.CodeFileNotFound {
		t.Errorf("error = %v, want file_not_found", err)
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeFile(t, "bad.json", `{"not": "an array"}`)

	_, err := NewLoader().LoadBuktiPotong(path)
	if err == nil {
		t.Fatal("expected an error for malformed content")
	}

	reconErr, ok := errors.AsReconError(err)
	if !ok || reconErr.Code != errors.CodeInvalidFormat {
		t.Errorf("error = %v, want invalid_format", err)
	}
}

func TestLoadRejectsMissingIDs(t *testing.T) {
	path := writeFile(t, "noid.json", `[{"date": "2024-01-22", "amount": "1"}]`)

	_, err := NewLoader().LoadRekeningKoran(path)
	if err == nil {
		t.Fatal("expected an error for records without IDs")
	}

	reconErr, ok := errors.AsReconError(err)
	if !ok || reconErr.Code != errors.CodeInvalidFormat {
		t.Errorf("error = %v, want invalid_format", err)
	}
}

func TestLoadEmptyArray(t *testing.T) {
	path := writeFile(t, "empty.json", `[]`)

	records, err := NewLoader().LoadFakturPajak(path)
	if err != nil {
		t.Fatalf("an empty file is valid, got: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}
