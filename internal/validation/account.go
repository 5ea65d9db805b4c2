package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Bcrypt ignores everything past 72 bytes.
const (
	minPasswordLength = 12
	maxPasswordBytes  = 72
)

var weakPasswordFragments = []string{
	"password", "123456", "qwerty", "letmein", "admin",
	"welcome", "iloveyou", "abc123", "111111", "estatedesk",
}

// ValidateEmail checks an address against RFC 5322 and the 254 byte SMTP limit.
func ValidateEmail(email string) error {
	switch {
	case email == "":
		return errors.New("email address is required")
	case validate.Var(email, "max=254") != nil:
		return errors.New("email address is too long (max 254 characters)")
	case validate.Var(email, "email") != nil:
		return errors.New("invalid email address format")
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return errors.New("password must be at least 12 characters")
	}
	if len(password) > maxPasswordBytes {
		return errors.New("password must not exceed 72 bytes")
	}

	lower := strings.ToLower(password)
	for _, fragment := range weakPasswordFragments {
		if strings.Contains(lower, fragment) {
			return errors.New("password is too common, please choose a stronger one")
		}
	}
	return nil
}

// ValidateName checks an agent display name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(name) > 100 {
		return errors.New("name is too long (max 100 characters)")
	}
	return nil
}
