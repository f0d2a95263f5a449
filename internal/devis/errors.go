package devis

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing required field. It is user-facing and
// means no repository call was attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	// ErrSaveInFlight is returned when a save is requested while a previous
	// one has not completed yet.
	ErrSaveInFlight = errors.New("a save is already in flight")
	// ErrNoDraft is returned when an operation needs a draft and none is
	// loaded.
	ErrNoDraft = errors.New("no draft loaded")
)
