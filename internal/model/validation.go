package model

import "time"

// ValidationKind classifies a validation finding.
type ValidationKind string

const (
	KindSyntax      ValidationKind = "syntax"
	KindSemantic    ValidationKind = "semantic"
	KindParserCrash ValidationKind = "parser_crash"
)

// Severity of a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is one blocking finding from the validation pipeline.
// Line and Column are 1-based and zero when not derivable.
type ValidationError struct {
	Kind     ValidationKind `json:"kind"`
	Message  string         `json:"message"`
	Line     int            `json:"line,omitempty"`
	Column   int            `json:"column,omitempty"`
	Path     string         `json:"path,omitempty"`
	Severity Severity       `json:"severity"`
}

// ValidationWarning is a non-blocking finding.
type ValidationWarning struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult is the outcome of the full three-pass validation. The
// pipeline returns a result value in every case; it never returns an error
// and never panics outward.
type ValidationResult struct {
	Valid               bool                `json:"valid"`
	Errors              []ValidationError   `json:"errors"`
	Warnings            []ValidationWarning `json:"warnings"`
	UnsupportedFeatures []string            `json:"unsupported_features,omitempty"`
	ValidatedAt         time.Time           `json:"validated_at"`
}
