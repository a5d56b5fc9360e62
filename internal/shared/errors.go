package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrPeriodBusy indicates another operation holds the period.
	ErrPeriodBusy = errors.New("period is busy with another operation")
)
