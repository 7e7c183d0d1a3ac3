package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrNameRequired        = errors.New("name is required")
	ErrEmailInvalid        = errors.New("a valid email address is required")
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong     = errors.New("password must be at most 72 bytes")
	ErrPasswordRequired    = errors.New("password is required")
	ErrTitleRequired       = errors.New("title is required")
	ErrTitleTooLong        = errors.New("title must be at most 200 characters")
	ErrDescriptionTooShort = errors.New("description must be at least 5 characters")
	ErrAddressRequired     = errors.New("address is required")
)

const (
	minPasswordLength    = 6
	maxPasswordBytes     = 72
	minDescriptionLength = 5
	maxTitleLength       = 200
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidateSignup(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	// bcrypt ignores everything past 72 bytes.
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func ValidateLogin(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return ErrPasswordRequired
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

func ValidatePlace(title, description, address string) error {
	if err := ValidatePlacePatch(title, description); err != nil {
		return err
	}
	if strings.TrimSpace(address) == "" {
		return ErrAddressRequired
	}
	return nil
}

func ValidatePlacePatch(title, description string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(trimmed) > maxTitleLength {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(strings.TrimSpace(description)) < minDescriptionLength {
		return ErrDescriptionTooShort
	}
	return nil
}
