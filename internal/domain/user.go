package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxUserIDLen bounds user identifiers; they are embedded in storage keys.
const MaxUserIDLen = 64

// ValidateUserID checks that id is a usable opaque identifier.
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidUser)
	}
	if len(id) > MaxUserIDLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidUser, MaxUserIDLen)
	}
	if strings.ContainsRune(id, ':') || strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q contains a separator or whitespace", ErrInvalidUser, id)
	}
	return nil
}
