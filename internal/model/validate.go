package model

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/and161185/bagtrack/internal/errs"
)

var (
	reAirlineCode    = regexp.MustCompile(`^[A-Z]{2}$`)
	reFlightNumber   = regexp.MustCompile(`^\d{4}$`)
	reBagCode        = regexp.MustCompile(`^\d{6}$`)
	reTicketNumber   = regexp.MustCompile(`^\d{10}$`)
	reIdentification = regexp.MustCompile(`^\d{6}$`)
	reName           = regexp.MustCompile(`^[A-Za-z]{2,}$`)
	reEmail          = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	rePhone          = regexp.MustCompile(`^[1-9]\d{9}$`)
	reUsername       = regexp.MustCompile(`^[A-Za-z]{2}\d{2}$`)
)

func check(re *regexp.Regexp, v, field, requirement string) error {
	if !re.MatchString(v) {
		return fmt.Errorf("%s: %s: %w", field, requirement, errs.ErrValidation)
	}
	return nil
}

// ValidateAirlineCode expects an upper-cased code.
func ValidateAirlineCode(v string) error {
	return check(reAirlineCode, v, "airline code", "2 letters")
}

func ValidateFlightNumber(v string) error {
	return check(reFlightNumber, v, "flight number", "4 digits")
}

func ValidateBagCode(v string) error {
	return check(reBagCode, v, "bag id", "6 digits")
}

func ValidateTicketNumber(v string) error {
	return check(reTicketNumber, v, "ticket number", "10 digits")
}

func ValidateIdentification(v string) error {
	return check(reIdentification, v, "identification", "6 digits")
}

func ValidateName(field, v string) error {
	return check(reName, v, field, "at least 2 letters")
}

func ValidateEmail(v string) error {
	return check(reEmail, v, "email", "valid address")
}

func ValidatePhone(v string) error {
	return check(rePhone, v, "phone", "10 digits, not starting with 0")
}

func ValidateUsername(v string) error {
	return check(reUsername, v, "username", "2 letters + 2 digits")
}

// Required rejects blank values.
func Required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required: %w", field, errs.ErrValidation)
	}
	return nil
}

// PasswordStrengthErrors lists unmet password policy rules.
func PasswordStrengthErrors(pw string) []string {
	var out []string
	if len(pw) < 6 {
		out = append(out, "at least 6 characters")
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		out = append(out, "at least 1 uppercase letter")
	}
	if !lower {
		out = append(out, "at least 1 lowercase letter")
	}
	if !digit {
		out = append(out, "at least 1 number")
	}
	return out
}

// ValidatePassword enforces the password policy.
func ValidatePassword(pw string) error {
	if problems := PasswordStrengthErrors(pw); len(problems) > 0 {
		return fmt.Errorf("password: %s: %w", strings.Join(problems, ", "), errs.ErrValidation)
	}
	return nil
}
