package domain

import "errors"

// Sentinel errors for row validation failures.
var (
	ErrMissingCompany  = errors.New("missing company")
	ErrMissingTitle    = errors.New("missing title")
	ErrMissingLocation = errors.New("missing location")
	ErrMissingDate     = errors.New("missing posted date")
	ErrPostingClosed   = errors.New("posting closed")
)

// ClosedGlyph marks a row whose application window is closed in the listing
// document. Rows carrying it are skipped even when otherwise complete.
const ClosedGlyph = "🔒"

// ValidationError wraps a sentinel with the offending field value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return "validate: " + e.Wrapped.Error() + " (field=" + e.Field + " value=" + e.Value + ")"
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// ValidateRow checks the raw cells of one listing-table row before it becomes
// a Posting. status is the raw status cell; closed rows are rejected.
func ValidateRow(company, title, location, status, postedDate string) error {
	if company == "" {
		return NewValidationError("company", company, ErrMissingCompany)
	}
	if title == "" {
		return NewValidationError("title", title, ErrMissingTitle)
	}
	if location == "" {
		return NewValidationError("location", location, ErrMissingLocation)
	}
	if status == ClosedGlyph {
		return NewValidationError("status", status, ErrPostingClosed)
	}
	if postedDate == "" {
		return NewValidationError("posted_date", postedDate, ErrMissingDate)
	}
	return nil
}

// ValidatePosting checks a fully-resolved Posting.
func ValidatePosting(p Posting) error {
	return ValidateRow(p.Company, p.Title, p.Location, "", p.PostedDate)
}
