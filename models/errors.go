package models

import "errors"

var (
	// ErrInvalidDate is returned when a date parameter cannot be parsed.
	ErrInvalidDate = errors.New("invalid date format")

	// ErrForbidden is returned when a non-admin caller requests an export.
	ErrForbidden = errors.New("access denied: admin privileges required")

	// ErrEmptyExport is returned when an export is requested over an
	// empty projection.
	ErrEmptyExport = errors.New("no data available for export")
)
