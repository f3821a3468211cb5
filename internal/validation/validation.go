// Package validation contains input validation for registration and
// profile edits.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	passwordvalidator "github.com/wagslane/go-password-validator"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_]{1,18}[a-zA-Z0-9]$`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// minPasswordEntropy is the entropy floor in bits. 60 rejects short or
// highly repetitive passwords while leaving passphrases usable.
const minPasswordEntropy = 60

const maxDisplayNameLen = 50

// ValidateUsername checks the username format: 3-20 characters, letters,
// digits and interior underscores.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-20 characters of letters, digits and underscores, and cannot start or end with an underscore")
	}
	return nil
}

// ValidateEmail checks the basic shape of an email address.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword checks password strength.
func ValidatePassword(password string) error {
	return passwordvalidator.Validate(password, minPasswordEntropy)
}

// ValidateDisplayName checks a profile display name.
func ValidateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("display name is required")
	}
	if len(trimmed) > maxDisplayNameLen {
		return fmt.Errorf("display name too long (max %d characters)", maxDisplayNameLen)
	}
	return nil
}
