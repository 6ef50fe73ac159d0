package arrivals

import "errors"

var (
	// ErrNoYearInFilename is returned when a source filename has no 4-digit run.
	ErrNoYearInFilename = errors.New("arrivals: no year found in filename")

	// ErrMissingColumn is returned when the transform input lacks a required column.
	ErrMissingColumn = errors.New("arrivals: missing required column")
)
