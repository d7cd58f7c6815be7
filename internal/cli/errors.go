package cli

import (
	"errors"

	"github.com/aidanlsb/skycat/internal/index"
	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/store"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	// Store and document errors
	ErrParse             = "PARSE_ERROR"
	ErrStoreCorrupt      = "STORE_CORRUPT"
	ErrDanglingReference = "DANGLING_REFERENCE"
	ErrCyclicReference   = "CYCLIC_REFERENCE"
	ErrAmbiguousMatch    = "AMBIGUOUS_MATCH"
	ErrQuarantined       = "QUARANTINED"

	// Run outcomes
	ErrCheckFailed   = "CHECK_FAILED"
	ErrTraceUnclean  = "TRACE_UNCLEAN"
	ErrIndexLocked   = "INDEX_LOCKED"
	ErrConfigInvalid = "CONFIG_INVALID"
	ErrInvalidInput  = "INVALID_INPUT"

	ErrInternal = "INTERNAL_ERROR"
)

// codedError attaches an explicit code to an error.
type codedError struct {
	code string
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code string, err error) error {
	return &codedError{code: code, err: err}
}

// errorCode maps an error to its stable code. Explicit codes win over the
// classes of the catalog engine.
func errorCode(err error) string {
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	switch {
	case errors.Is(err, model.ErrParse):
		return ErrParse
	case errors.Is(err, model.ErrStoreCorrupt):
		return ErrStoreCorrupt
	case errors.Is(err, model.ErrCyclicReference):
		return ErrCyclicReference
	case errors.Is(err, model.ErrDanglingReference):
		return ErrDanglingReference
	case errors.Is(err, model.ErrAmbiguousMatch):
		return ErrAmbiguousMatch
	case errors.Is(err, store.ErrQuarantined):
		return ErrQuarantined
	case errors.Is(err, index.ErrIndexLocked):
		return ErrIndexLocked
	}
	return ErrInternal
}
