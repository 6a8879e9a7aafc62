package cart

import (
	"errors"
	"fmt"
)

var (
	// ErrItemNotFound is returned for an item key that is not in the cart.
	ErrItemNotFound = errors.New("cart item not found")
)

// ValidationError is a request rejected locally, before any network call.
type ValidationError struct {
	Message        string
	AvailableStock int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid cart request: %s", e.Message)
}

// IsValidation reports whether err was produced by local validation.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
