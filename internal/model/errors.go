package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure classes of the catalog engine. The typed
// errors below unwrap to one of these so callers can use errors.Is.
var (
	ErrParse             = errors.New("parse error")
	ErrStoreCorrupt      = errors.New("store corrupt")
	ErrDanglingReference = errors.New("dangling reference")
	ErrCyclicReference   = errors.New("cyclic reference")
	ErrAmbiguousMatch    = errors.New("ambiguous match")
)

// ParseError reports a malformed record file or input document.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// StoreCorruptError reports a store integrity violation found while loading:
// a duplicate key, a misplaced record, or an invalid record.
type StoreCorruptError struct {
	Path   string
	Key    string
	Reason string
}

func (e *StoreCorruptError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store corrupt: %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("store corrupt: %s (%s): %s", e.Path, e.Key, e.Reason)
}

func (e *StoreCorruptError) Unwrap() error { return ErrStoreCorrupt }

// DanglingReferenceError reports a template child or place imagery reference
// that names a record missing from the store.
type DanglingReferenceError struct {
	Catalog string
	Kind    ChildKind
	Ref     string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference in catalog %q: %s %s", e.Catalog, e.Kind, e.Ref)
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }

// CyclicReferenceError reports a catalog reachable from itself. Chain lists
// the catalog names from the first visit to the repeated one.
type CyclicReferenceError struct {
	Chain []string
}

func (e *CyclicReferenceError) Error() string {
	return "cyclic reference: " + strings.Join(e.Chain, " -> ")
}

func (e *CyclicReferenceError) Unwrap() error { return ErrCyclicReference }

// AmbiguousMatchError reports a candidate place that is equivalent to more
// than one stored place.
type AmbiguousMatchError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match for place %q: %d stored places within tolerance (%s)",
		e.Name, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousMatchError) Unwrap() error { return ErrAmbiguousMatch }
