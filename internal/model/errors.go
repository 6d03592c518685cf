package model

import (
	"errors"
	"fmt"
)

// Error kinds returned by the scheduling engine. Callers match them with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrScheduleConflict = errors.New("schedule conflict")
	ErrSlotUnavailable  = errors.New("slot unavailable")
	ErrNotFound         = errors.New("not found")

	// ErrSessionClosed is returned for completed sessions; it matches ErrNotFound.
	ErrSessionClosed = fmt.Errorf("%w: session already completed", ErrNotFound)
)
