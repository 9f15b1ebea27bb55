// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"overthinkistan/internal/models"
)

const (
	minNameLength     = 2
	maxNameLength     = 50
	minUsernameLength = 4
	maxUsernameLength = 20
	minPasswordLength = 8
	maxPasswordLength = 32
	maxEmailLength    = 254
	maxBiography      = 500
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidatePassword checks if a password meets security requirements.
// Mixed case is required, plus a digit or a special character.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	if n > maxPasswordLength {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLength)
	}

	var hasUpper, hasLower, hasDigitOrSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
		if unicode.IsDigit(r) || isSpecial(r) {
			hasDigitOrSpecial = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasDigitOrSpecial {
		return fmt.Errorf("password must contain at least one digit or special character")
	}
	return nil
}

// isSpecial matches anything outside [A-Za-z0-9_].
func isSpecial(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return false
	}
	return true
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < minUsernameLength {
		return fmt.Errorf("username must be at least %d characters long", minUsernameLength)
	}
	if len(username) > maxUsernameLength {
		return fmt.Errorf("username must not exceed %d characters", maxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email must not exceed %d characters", maxEmailLength)
	}
	return nil
}

// ValidateName checks a name or surname. field is used in the message.
func ValidateName(field, value string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < minNameLength || n > maxNameLength {
		return fmt.Errorf("%s must be between %d and %d characters", field, minNameLength, maxNameLength)
	}
	return nil
}

func ValidateBiography(bio string) error {
	if utf8.RuneCountInString(bio) > maxBiography {
		return fmt.Errorf("biography must not exceed %d characters", maxBiography)
	}
	return nil
}

func ValidateGender(g models.Gender) error {
	if !g.Valid() {
		return fmt.Errorf("gender must be one of MALE, FEMALE, OTHER, PREFER_NOT_TO_SAY")
	}
	return nil
}

// Registration carries the fields a new account is checked against.
type Registration struct {
	Name     string
	Surname  string
	Username string
	Email    string
	Password string
	Gender   models.Gender
}

// ValidateRegistration returns the first failing rule. An empty gender is
// allowed and later defaults to PREFER_NOT_TO_SAY.
func ValidateRegistration(r Registration) error {
	checks := []func() error{
		func() error { return ValidateName("name", r.Name) },
		func() error { return ValidateName("surname", r.Surname) },
		func() error { return ValidateUsername(r.Username) },
		func() error { return ValidateEmail(r.Email) },
		func() error { return ValidatePassword(r.Password) },
		func() error {
			if r.Gender == "" {
				return nil
			}
			return ValidateGender(r.Gender)
		},
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
