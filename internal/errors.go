package internal

import (
	"errors"
	"fmt"
)

var ErrEmptyGroup = errors.New("outlier filter called with no listings")

// SchemaError reports a feed record missing a required field.
type SchemaError struct {
	Feed  string
	Line  int
	Field string
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s feed line %d: missing required field %q", e.Feed, e.Line, e.Field)
	}
	return fmt.Sprintf("%s record: missing required field %q", e.Feed, e.Field)
}

type PriceParseError struct {
	Title string
	Price string
	Err   error
}

func (e *PriceParseError) Error() string {
	return fmt.Sprintf("listing %q: invalid price %q: %v", e.Title, e.Price, e.Err)
}

func (e *PriceParseError) Unwrap() error { return e.Err }
