package sqlparse

import "errors"

// The messages are shown to users as-is.
var (
	ErrEmptyInput      = errors.New("Empty SQL query")             //nolint:staticcheck
	ErrMissingFrom     = errors.New("Could not find FROM clause")  //nolint:staticcheck
	ErrMalformedInsert = errors.New("Invalid INSERT query format") //nolint:staticcheck
	ErrInternalFault   = errors.New("internal parser fault")
)
