package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryNormalization ErrorCategory = "normalization"
	CategoryAdapter       ErrorCategory = "adapter"
	CategoryConfiguration ErrorCategory = "configuration"
	CategorySplit         ErrorCategory = "split"
	CategoryFile          ErrorCategory = "file"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Normalization errors - scoped to a single record, never fatal
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidTaxID  ErrorCode = "invalid_tax_id"
	CodeMissingField  ErrorCode = "missing_field"
	CodeOutOfPeriod   ErrorCode = "out_of_period"

	// Adapter errors - AI assist path, always recoverable by fallback
	CodeTimeout           ErrorCode = "timeout"
	CodeRateLimited       ErrorCode = "rate_limited"
	CodeMalformedResponse ErrorCode = "malformed_response"

	// Configuration errors - fatal before any matching begins
	CodeInvalidConfig  ErrorCode = "invalid_config"
	CodeInvalidWeights ErrorCode = "invalid_weights"
	CodeBadThresholds  ErrorCode = "bad_thresholds"

	// Split errors - NPWP assignment, per record
	CodeSplitAmbiguity ErrorCode = "split_ambiguity"

	// File errors
	CodeFileNotFound  ErrorCode = "file_not_found"
	CodeInvalidFormat ErrorCode = "invalid_format"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconError is the base error type for all application errors
type ReconError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconError) Unwrap() error {
	return e.Cause
}

// IsRecordScoped reports whether the error affects a single record and
// should be accumulated as a diagnostic rather than aborting the run.
func (e *ReconError) IsRecordScoped() bool {
	return e.Category == CategoryNormalization || e.Category == CategorySplit
}

// IsRecoverable reports whether the error path has a deterministic
// fallback (the AI assist path always does).
func (e *ReconError) IsRecoverable() bool {
	return e.Category == CategoryAdapter
}

// RecordID returns the record ID attached to the error context, if any.
func (e *ReconError) RecordID() string {
	if e.Context == nil {
		return ""
	}
	if id, ok := e.Context["record_id"].(string); ok {
		return id
	}
	return ""
}

// WithContext adds context information to the error
func (e *ReconError) WithContext(key string, value interface{}) *ReconError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconError) WithSuggestion(suggestion string) *ReconError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconError
func New(category ErrorCategory, code ErrorCode, message string) *ReconError {
	return &ReconError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconError {
	if err == nil {
		return nil
	}

	return &ReconError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// NormalizationError creates a record-scoped normalization error. The
// record is excluded from matching and the error becomes a diagnostic.
func NormalizationError(code ErrorCode, recordID, field, value string, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidDate:
		message = fmt.Sprintf("record %s: cannot parse date %q in field %q", recordID, value, field)
		suggestion = "supported formats are DD-MMM-YYYY, DD/MM/YY, DD/MM/YYYY and ISO-8601"
	case CodeInvalidAmount:
		message = fmt.Sprintf("record %s: cannot parse amount %q in field %q", recordID, value, field)
		suggestion = "amounts may use Rp prefix, dot thousand separators, decimal comma and parentheses for debits"
	case CodeInvalidTaxID:
		message = fmt.Sprintf("record %s: invalid tax ID %q in field %q", recordID, value, field)
		suggestion = "NPWP must contain only digits after stripping formatting punctuation"
	case CodeMissingField:
		message = fmt.Sprintf("record %s: required field %q is missing or empty", recordID, field)
		suggestion = "provide a value for this required field"
	default:
		message = fmt.Sprintf("record %s: normalization error in field %q: %q", recordID, field, value)
		suggestion = "check the field value and format"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryNormalization, code, message)
	} else {
		result = New(CategoryNormalization, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("record_id", recordID).
		WithContext("field", field).
		WithContext("value", value)
}

// AdapterError creates an AI assist error. These are always recoverable:
// the engine falls back to the deterministic composite alone.
func AdapterError(code ErrorCode, operation string, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeTimeout:
		message = fmt.Sprintf("AI matching adapter timed out during %s", operation)
		suggestion = "increase the adapter timeout or disable AI assistance"
	case CodeRateLimited:
		message = fmt.Sprintf("AI matching adapter was rate limited during %s", operation)
		suggestion = "reduce batch size or retry later"
	case CodeMalformedResponse:
		message = fmt.Sprintf("AI matching adapter returned a malformed response during %s", operation)
		suggestion = "the deterministic scores were used instead"
	default:
		message = fmt.Sprintf("AI matching adapter error during %s", operation)
		suggestion = "the deterministic scores were used instead"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryAdapter, code, message)
	} else {
		result = New(CategoryAdapter, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ConfigurationError creates a configuration error. Configuration errors
// are fatal and surface before any matching work is performed.
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidWeights:
		message = fmt.Sprintf("invalid scoring weights for %q: %v", setting, value)
		suggestion = "weights must each be in [0,1] and sum to 1.0"
	case CodeBadThresholds:
		message = fmt.Sprintf("invalid classification thresholds for %q: %v", setting, value)
		suggestion = "thresholds must satisfy min_confidence <= fuzzy <= exact, each in [0,1]"
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for %q: %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// SplitAmbiguityError creates a per-record NPWP split error: the invoice's
// seller and buyer tax IDs match neither (or both) the company tax ID.
// The record is excluded from both Point A and Point B; the run continues.
func SplitAmbiguityError(recordID, sellerTaxID, buyerTaxID, companyTaxID string) *ReconError {
	return New(CategorySplit, CodeSplitAmbiguity,
		fmt.Sprintf("invoice %s: neither seller (%s) nor buyer (%s) tax ID matches the company tax ID exclusively",
			recordID, sellerTaxID, buyerTaxID)).
		WithSuggestion("verify the filing company's NPWP and the invoice's party tax IDs").
		WithContext("record_id", recordID).
		WithContext("seller_tax_id", sellerTaxID).
		WithContext("buyer_tax_id", buyerTaxID).
		WithContext("company_tax_id", companyTaxID)
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeInvalidFormat:
		message = fmt.Sprintf("file has an invalid format: %s", path)
		suggestion = "record files must be JSON arrays produced by the extraction stage"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *ReconError {
	result := Wrap(err, CategoryInternal, CodeUnexpectedError,
		fmt.Sprintf("unexpected error during %s", operation))
	if result == nil {
		result = New(CategoryInternal, CodeUnexpectedError,
			fmt.Sprintf("unexpected error during %s", operation))
	}
	return result.WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*ReconError         `json:"errors"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ReconError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	count, exists := es.ByCategory[category]
	return exists && count > 0
}

// Utility functions

// AsReconError extracts a ReconError from an error chain
func AsReconError(err error) (*ReconError, bool) {
	var reconErr *ReconError
	if errors.As(err, &reconErr) {
		return reconErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconError {
	if err == nil {
		return nil
	}

	if reconErr, ok := AsReconError(err); ok {
		return reconErr
	}

	return Wrap(err, category, code, message)
}
