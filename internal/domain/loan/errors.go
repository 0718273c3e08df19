package loan

import (
	"errors"
	"fmt"
)

// Stable, user-renderable failures. The UI collaborator maps each value
// to one message; none of these wraps a driver error.
var (
	ErrFeatureUnavailable = errors.New("lending is not available for this library, refresh and try again")
	ErrAlreadyOnLoan      = errors.New("item is already on loan")
	ErrLoanNotFound       = errors.New("loan not found")
	ErrInvalidState       = errors.New("loan is not active")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
