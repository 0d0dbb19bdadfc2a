package security

import (
	"strings"
	"unicode"

	"cyberwise/portal/internal/apperr"
)

const MinPasswordLength = 8

// SpecialCharacters is the set a strong password must draw at least one character from.
const SpecialCharacters = "!@#$%^&*()-_=+[]{}|;:'\",.<>/?`~\\"

const PasswordRequirements = "Password must be at least 8 characters long and contain at least one uppercase letter, " +
	"one lowercase letter, one number, and one special character (" + SpecialCharacters + ")"

type PasswordRule string

const (
	RuleMinLength PasswordRule = "min_length"
	RuleUppercase PasswordRule = "uppercase"
	RuleLowercase PasswordRule = "lowercase"
	RuleDigit     PasswordRule = "digit"
	RuleSpecial   PasswordRule = "special"
)

// FailedRules lists every rule password breaks, in a fixed order.
func FailedRules(password string) []PasswordRule {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(SpecialCharacters, r):
			special = true
		}
	}

	var failed []PasswordRule
	if len([]rune(password)) < MinPasswordLength {
		failed = append(failed, RuleMinLength)
	}
	if !upper {
		failed = append(failed, RuleUppercase)
	}
	if !lower {
		failed = append(failed, RuleLowercase)
	}
	if !digit {
		failed = append(failed, RuleDigit)
	}
	if !special {
		failed = append(failed, RuleSpecial)
	}
	return failed
}

func IsStrongPassword(password string) bool {
	return len(FailedRules(password)) == 0
}

// ValidateStrength returns a weak_password error naming the failed rules.
func ValidateStrength(password string) error {
	failed := FailedRules(password)
	if len(failed) == 0 {
		return nil
	}
	return apperr.WeakPassword(PasswordRequirements).WithDetails(map[string]any{"failedRules": failed})
}
