package chat

import (
	"chatterm/errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const MaxNameLength = 32

var validate = validator.New()

type nameRequest struct {
	Name string `validate:"required,max=32"`
}

// ValidateName checks a requested display name before it reaches the registry.
func ValidateName(name string) error {
	if err := validate.Struct(nameRequest{Name: name}); err != nil {
		return fmt.Errorf("%w: %q must hold 1 to %d characters", errors.ErrInvalidName, name, MaxNameLength)
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: %q cannot start with '/'", errors.ErrInvalidName, name)
	}
	if !isDisplayable(name) {
		return fmt.Errorf("%w: %q contains spaces or control characters", errors.ErrInvalidName, name)
	}
	return nil
}

func isDisplayable(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
