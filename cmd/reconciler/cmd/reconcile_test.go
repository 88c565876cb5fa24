package cmd

import (
	"strings"
	"testing"
)

func setValidFlags() {
	invoicesFile = "fp.json"
	withholding = "bp.json"
	bankStatement = ""
	companyTaxID = "01.234.567.8-901.000"
	periodStart = "2024-01-01"
	periodEnd = "2024-01-31"
	outputFormat = "console"
	minConfidence = 0
	dateTolerance = 7
}

func TestValidateReconcileFlags(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func()
		wantErr string
	}{
		{
			name:   "valid flags",
			mutate: func() {},
		},
		{
			name: "no counterparty file",
			mutate: func() {
				withholding = ""
				bankStatement = ""
			},
			wantErr: "at least one of",
		},
		{
			name: "bank statement alone is enough",
			mutate: func() {
				withholding = ""
				bankStatement = "rk.json"
			},
		},
		{
			name:    "bad output format",
			mutate:  func() { outputFormat = "yaml" },
			wantErr: "invalid output format",
		},
		{
			name:    "bad period start",
			mutate:  func() { periodStart = "01/01/2024" },
			wantErr: "period-start",
		},
		{
			name:    "bad period end",
			mutate:  func() { periodEnd = "soon" },
			wantErr: "period-end",
		},
		{
			name:    "min confidence out of range",
			mutate:  func() { minConfidence = 1.5 },
			wantErr: "min-confidence",
		},
		{
			name:    "non-positive date tolerance",
			mutate:  func() { dateTolerance = 0 },
			wantErr: "date-tolerance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setValidFlags()
			tt.mutate()

			err := validateReconcileFlags(reconcileCmd, nil)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("expected an error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}
