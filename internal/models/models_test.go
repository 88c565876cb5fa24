package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validRecord() *NormalizedRecord {
	return &NormalizedRecord{
		ID:               "fp-1",
		SourcePoint:      PointA,
		Date:             time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount:           decimal.NewFromInt(1000000),
		CounterpartyName: "PT Maju Jaya",
	}
}

func TestSourcePointIsValid(t *testing.T) {
	for _, sp := range []SourcePoint{PointA, PointB, PointC, PointE} {
		if !sp.IsValid() {
			t.Errorf("%s should be valid", sp)
		}
	}
	if SourcePoint("D").IsValid() {
		t.Error("D is not a known source point")
	}
}

func TestNormalizedRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*NormalizedRecord)
		wantErr bool
	}{
		{"valid", func(r *NormalizedRecord) {}, false},
		{"empty id", func(r *NormalizedRecord) { r.ID = " " }, true},
		{"bad point", func(r *NormalizedRecord) { r.SourcePoint = "X" }, true},
		{"zero date", func(r *NormalizedRecord) { r.Date = time.Time{} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)
			err := rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizedRecordJSON(t *testing.T) {
	rec := validRecord()
	rec.Amount = decimal.RequireFromString("1500000.50")

	body, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	out := string(body)
	if !strings.Contains(out, `"amount":"1500000.5"`) {
		t.Errorf("amount must serialize as a string, got %s", out)
	}
	if !strings.Contains(out, `"date":"2024-01-10"`) {
		t.Errorf("date must serialize as YYYY-MM-DD, got %s", out)
	}
	if strings.Contains(out, "InputOrder") || strings.Contains(out, "input_order") {
		t.Errorf("input order must not serialize, got %s", out)
	}
}

func TestProjectValidate(t *testing.T) {
	valid := func() *ReconciliationProject {
		return &ReconciliationProject{
			Name:         "January filing",
			PeriodStart:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			CompanyTaxID: "012345678901000",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ReconciliationProject)
		wantErr bool
	}{
		{"valid", func(p *ReconciliationProject) {}, false},
		{"empty name", func(p *ReconciliationProject) { p.Name = "" }, true},
		{"empty tax id", func(p *ReconciliationProject) { p.CompanyTaxID = "" }, true},
		{"missing period", func(p *ReconciliationProject) { p.PeriodStart = time.Time{} }, true},
		{"inverted period", func(p *ReconciliationProject) {
			p.PeriodStart, p.PeriodEnd = p.PeriodEnd, p.PeriodStart
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProjectComplete(t *testing.T) {
	p := &ReconciliationProject{Status: StatusDraft}
	if err := p.Complete(); err != nil {
		t.Fatalf("completing a draft project failed: %v", err)
	}
	if p.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", p.Status)
	}

	// completing again (a re-run) is a no-op
	if err := p.Complete(); err != nil {
		t.Errorf("re-completing failed: %v", err)
	}

	bad := &ReconciliationProject{Status: "archived"}
	if err := bad.Complete(); err == nil {
		t.Error("completing an unknown status must fail")
	}
}

func TestResultTotalRecords(t *testing.T) {
	result := &ReconciliationResult{
		Counts: PointCounts{PointA: 2, PointB: 3, PointC: 4, PointE: 5},
	}
	if got := result.TotalRecords(); got != 14 {
		t.Errorf("TotalRecords() = %d, want 14", got)
	}
}
