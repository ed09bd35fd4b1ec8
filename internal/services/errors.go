package services

import (
	"errors"
)

var (
	// ErrInvalidInput marks errors caused by the caller's data rather than
	// by the store. It wraps the underlying core validation error.
	ErrInvalidInput = errors.New("invalid input")

	ErrNotRecurring       = errors.New("only recurring templates can be split")
	ErrSplitOutsideSeries = errors.New("split month must fall after the first occurrence and inside the series")
	ErrNoOccurrence       = errors.New("template has no occurrence in that month")
	ErrMissingMonth       = errors.New("month is required")
)

func invalid(err error) error {
	return errors.Join(ErrInvalidInput, err)
}
