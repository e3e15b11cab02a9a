package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrIndexExists = errors.New("db: index already exists")
	// ErrSyntax marks a query the index refused to parse, or one referencing
	// fields the index schema does not have.
	ErrSyntax = errors.New("db: query syntax error")
	// ErrCircuitOpen is returned without calling the backend while its breaker is open.
	ErrCircuitOpen = errors.New("db: circuit open")
)

// Op constants map to Redis command names for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpAggregate   = "FT.AGGREGATE"
	OpGet         = "GET"
	OpSet         = "SET"
	OpDel         = "DEL"
	OpXAdd        = "XADD"
	OpQuery       = "QUERY"
	OpBreaker     = "BREAKER"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
