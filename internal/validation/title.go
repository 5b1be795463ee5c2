package validation

import (
	"strings"
)

// ValidateTitle validates a goal title
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)

	if trimmed == "" {
		return NewError("title is required")
	}

	if len(trimmed) > 500 {
		return NewError("title is too long (max 500 characters)")
	}

	return nil
}
