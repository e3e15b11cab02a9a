package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidParam signals a rejected request parameter.
	ErrInvalidParam = errors.New("invalid parameter")
	// ErrQuerySyntax signals that the search index could not parse the query.
	ErrQuerySyntax = errors.New("malformed search query")
	// ErrSearchUnavailable signals that the search index could not be reached.
	ErrSearchUnavailable = errors.New("search server unavailable")
	// ErrStoreUnavailable signals that the record store could not be reached.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrClusteringFailed signals a terminal clustering failure.
	ErrClusteringFailed = errors.New("clustering failed")
)

// ValidationError is a field-level input rejection. It unwraps to ErrInvalidParam.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidParam.Error(), e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidParam }

// NewValidationError creates a field-level validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// QuerySyntaxError carries the query text the index refused.
type QuerySyntaxError struct {
	Query  string
	Reason string
}

func (e *QuerySyntaxError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %q", ErrQuerySyntax.Error(), e.Query)
	}
	return fmt.Sprintf("%s: %q: %s", ErrQuerySyntax.Error(), e.Query, e.Reason)
}

func (e *QuerySyntaxError) Unwrap() error { return ErrQuerySyntax }

// NewQuerySyntax creates a query syntax error for the given query text.
func NewQuerySyntax(query, reason string) error {
	return &QuerySyntaxError{Query: query, Reason: reason}
}
