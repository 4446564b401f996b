package wserrors

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/webschembly/wsc/internal/source"
)

// Report is the canonical structured error type for the compiler. Every
// recoverable failure (spec.md §7) is carried as one of these, wrapped as
// an error via ReportError so it survives errors.As unwrapping — mirrors
// the teacher's internal/errors.Report exactly.
type Report struct {
	Schema  string         `json:"schema"`
	Code    string         `json:"code"`
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Span    *source.Span   `json:"span,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// ReportError wraps a Report so it satisfies the error interface while
// remaining recoverable via errors.As.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown compiler error"
	}
	if e.Rep.Span != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Rep.Code, e.Rep.Message, e.Rep.Span)
	}
	return fmt.Sprintf("%s: %s", e.Rep.Code, e.Rep.Message)
}

// AsReport extracts the *Report from an error chain, if any.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// New builds a Report for the given phase/code/message/span and wraps it
// as an error. Phase is one of "lex", "parse", "ast", "ir", "ssaopt".
func New(phase, code, message string, span *source.Span) error {
	return &ReportError{Rep: &Report{
		Schema:  "webschembly.error/v1",
		Code:    code,
		Phase:   phase,
		Message: message,
		Span:    span,
	}}
}

// WithData attaches structured data to an existing report-backed error,
// returning a new error (the original is left untouched).
func WithData(err error, data map[string]any) error {
	rep, ok := AsReport(err)
	if !ok {
		return err
	}
	clone := *rep
	clone.Data = data
	return &ReportError{Rep: &clone}
}

// ToJSON renders the report deterministically (sorted map keys, via
// encoding/json's default map ordering).
func (r *Report) ToJSON(compact bool) (string, error) {
	if compact {
		data, err := json.Marshal(r)
		return string(data), err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	return string(data), err
}
