package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNormalizationErrorIsRecordScoped(t *testing.T) {
	err := NormalizationError(CodeInvalidDate, "fp-1", "invoice_date", "31-XXX-2024", nil)

	if err.Category != CategoryNormalization {
		t.Errorf("category = %s, want %s", err.Category, CategoryNormalization)
	}
	if !err.IsRecordScoped() {
		t.Error("normalization errors must be record scoped")
	}
	if err.IsRecoverable() {
		t.Error("normalization errors are not the recoverable adapter kind")
	}
	if err.RecordID() != "fp-1" {
		t.Errorf("record ID = %q, want fp-1", err.RecordID())
	}
	if !strings.Contains(err.Error(), "31-XXX-2024") {
		t.Errorf("message should carry the offending value: %s", err.Error())
	}
	if err.Suggestion == "" {
		t.Error("normalization errors should carry a suggestion")
	}
}

func TestAdapterErrorIsRecoverable(t *testing.T) {
	for _, code := range []ErrorCode{CodeTimeout, CodeRateLimited, CodeMalformedResponse} {
		err := AdapterError(code, "hint completion", fmt.Errorf("boom"))
		if !err.IsRecoverable() {
			t.Errorf("%s adapter error must be recoverable", code)
		}
		if err.IsRecordScoped() {
			t.Errorf("%s adapter error is not record scoped", code)
		}
	}
}

func TestSplitAmbiguityError(t *testing.T) {
	err := SplitAmbiguityError("fp-9", "111", "222", "333")

	if err.Category != CategorySplit || err.Code != CodeSplitAmbiguity {
		t.Errorf("got %s/%s, want split/split_ambiguity", err.Category, err.Code)
	}
	if !err.IsRecordScoped() {
		t.Error("split errors must be record scoped")
	}
	if err.Context["company_tax_id"] != "333" {
		t.Errorf("context = %v, want the company tax ID recorded", err.Context)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := Wrap(cause, CategoryFile, CodeInvalidFormat, "bad file")

	if err.Unwrap() != cause {
		t.Error("Unwrap must return the original cause")
	}
	if Wrap(nil, CategoryFile, CodeInvalidFormat, "x") != nil {
		t.Error("wrapping nil must return nil")
	}
}

func TestAsReconError(t *testing.T) {
	inner := ConfigurationError(CodeInvalidWeights, "weights", 1.2, nil)
	wrapped := fmt.Errorf("while validating: %w", inner)

	got, ok := AsReconError(wrapped)
	if !ok {
		t.Fatal("AsReconError failed to find the ReconError in the chain")
	}
	if got.Code != CodeInvalidWeights {
		t.Errorf("code = %s, want %s", got.Code, CodeInvalidWeights)
	}

	if _, ok := AsReconError(fmt.Errorf("plain")); ok {
		t.Error("plain errors are not ReconErrors")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	original := FileError(CodeFileNotFound, "/tmp/x", nil)
	if got := WrapIfNeeded(original, CategoryInternal, CodeUnexpectedError, "other"); got != original {
		t.Error("an existing ReconError must pass through unchanged")
	}

	plain := fmt.Errorf("plain")
	got := WrapIfNeeded(plain, CategoryInternal, CodeUnexpectedError, "wrapped")
	if got.Category != CategoryInternal || got.Unwrap() != plain {
		t.Errorf("plain error was not wrapped: %+v", got)
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconError{
		NormalizationError(CodeInvalidDate, "r1", "date", "x", nil),
		NormalizationError(CodeInvalidAmount, "r2", "amount", "y", nil),
		AdapterError(CodeTimeout, "hints", nil),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 3 {
		t.Errorf("total = %d, want 3", summary.Total)
	}
	if summary.ByCategory[CategoryNormalization] != 2 {
		t.Errorf("normalization count = %d, want 2", summary.ByCategory[CategoryNormalization])
	}
	if !summary.HasCategory(CategoryAdapter) {
		t.Error("summary should report the adapter category")
	}
	if summary.HasCategory(CategoryConfiguration) {
		t.Error("summary should not report absent categories")
	}
	if !strings.Contains(summary.Error(), "3 errors") {
		t.Errorf("summary message = %q", summary.Error())
	}

	single := NewErrorSummary(errs[:1])
	if single.Error() != errs[0].Error() {
		t.Error("a single-error summary should render that error")
	}

	empty := NewErrorSummary(nil)
	if empty.Error() != "no errors" {
		t.Errorf("empty summary = %q", empty.Error())
	}
}

func TestErrorStringIncludesSuggestion(t *testing.T) {
	err := New(CategoryInternal, CodeUnexpectedError, "boom").WithSuggestion("try again")
	if !strings.Contains(err.Error(), "try again") {
		t.Errorf("Error() = %q, want the suggestion included", err.Error())
	}
}
