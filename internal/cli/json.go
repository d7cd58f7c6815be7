package cli

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Response is the standard JSON envelope for all CLI output.
type Response struct {
	OK       bool        `json:"ok"`
	Data     interface{} `json:"data,omitempty"`
	Error    *ErrorInfo  `json:"error,omitempty"`
	Warnings []Warning   `json:"warnings,omitempty"`
	Meta     *Meta       `json:"meta,omitempty"`
}

// ErrorInfo contains structured error information.
type ErrorInfo struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Warning represents a non-fatal warning.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

// Meta contains metadata about the response.
type Meta struct {
	Count      int   `json:"count,omitempty"`
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// errReported marks an error already written to the output, so Execute only
// sets the exit status.
var errReported = errors.New("error already reported")

func (a *app) outputJSON(resp Response) {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}

func (a *app) outputSuccess(data interface{}, warnings []Warning, meta *Meta) {
	a.outputJSON(Response{OK: true, Data: data, Warnings: warnings, Meta: meta})
}

// fail reports err. In JSON mode it writes the error envelope and returns
// errReported; otherwise it returns err for Execute to print.
func (a *app) fail(err error, suggestion string) error {
	return a.failWithDetails(err, suggestion, nil)
}

func (a *app) failWithDetails(err error, suggestion string, details interface{}) error {
	if !a.jsonOutput {
		if suggestion != "" {
			return fmt.Errorf("%w\n\n%s", err, suggestion)
		}
		return err
	}
	a.outputJSON(Response{
		OK: false,
		Error: &ErrorInfo{
			Code:       errorCode(err),
			Message:    err.Error(),
			Details:    details,
			Suggestion: suggestion,
		},
	})
	return errReported
}
