package models

import "fmt"

// ParseError reports an uploaded document whose structure could not be
// recognized.
type ParseError struct {
	Reason string
	Line   int
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("could not parse statement (line %d): %s", e.Line, e.Reason)
	}
	return "could not parse statement: " + e.Reason
}

// NotFoundError reports an unknown statement id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("statement %q not found", e.ID)
}

// ValidationError reports incomplete or contradictory edit parameters.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid edit request: " + e.Reason
	}
	return fmt.Sprintf("invalid edit request: %s: %s", e.Field, e.Reason)
}

// UnsupportedFormatError reports an unknown export format.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format %q", e.Format)
}
