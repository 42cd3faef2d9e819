// Package validation contains input validation for account fields and
// moderation payloads.
package validation

import (
	"fmt"
	"regexp"
	"unicode"
)

const (
	minPasswordLen = 12
	maxPasswordLen = 128
	minUsernameLen = 3
	maxUsernameLen = 30
	maxEmailLen    = 254
	maxReasonLen   = 500
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$`)
	emailRegex    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}$`)
)

// ValidateUsername validates username length and character set.
func ValidateUsername(username string) error {
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may contain letters, numbers, hyphens and underscores, and must start and end with a letter or number")
	}
	return nil
}

// ValidateEmail validates email format and length.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLen {
		return fmt.Errorf("email must be at most %d characters", maxEmailLen)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword enforces length and character class requirements.
func ValidatePassword(password string) error {
	runes := []rune(password)
	if len(runes) < minPasswordLen || len(runes) > maxPasswordLen {
		return fmt.Errorf("password must be %d-%d characters", minPasswordLen, maxPasswordLen)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return fmt.Errorf("password must contain an uppercase letter, a lowercase letter, a digit, and a special character")
	}
	return nil
}

// ValidateReason bounds the free-text reason attached to moderation actions.
// An empty reason is allowed; the audit log substitutes the default wording.
func ValidateReason(reason string) error {
	if len(reason) > maxReasonLen {
		return fmt.Errorf("reason must be at most %d characters", maxReasonLen)
	}
	return nil
}
