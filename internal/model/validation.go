package model

// ValidationErrorType classifies a field validation failure
type ValidationErrorType string

const (
	ErrorTypeFormat  ValidationErrorType = "FORMAT"  // Does not match the field grammar
	ErrorTypeInvalid ValidationErrorType = "INVALID" // Well-formed but not a valid value
	ErrorTypeRange   ValidationErrorType = "RANGE"   // Outside the accepted range
)

// ValidationError describes one problem with one field value
type ValidationError struct {
	Field     string              `json:"field"`
	Value     string              `json:"value"`
	ErrorType ValidationErrorType `json:"error_type"`
	Message   string              `json:"message"`
}

// ValidationResult is the outcome of validating a single field
type ValidationResult struct {
	IsValid  bool              `json:"is_valid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// BorrowerValidation aggregates field results for one record
type BorrowerValidation struct {
	Fields map[string]ValidationResult `json:"fields,omitempty"`
	Passed bool                        `json:"passed"`
}
