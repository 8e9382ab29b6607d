// Package passwordpolicy validates candidate passwords against the account
// security rules. Checks are pure and carry no state, so handlers and the
// bootstrap tooling share the same implementation.
package passwordpolicy

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinLength and MaxLength bound accepted password sizes.
	MinLength = 8
	MaxLength = 128
)

// specialChars is the accepted special-character set.
const specialChars = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"

// commonPasswords is a deny-list matched as a substring anywhere in the
// candidate, so "mypassword1!" is rejected even though it equals no entry.
// Entries are lowercase; "Password123!" passes because the capital P breaks
// the match.
var commonPasswords = []string{
	"password",
	"12345678",
	"qwerty",
	"abc123",
	"password123",
}

// Result reports the outcome of a password check. Errors holds every violated
// rule; callers surface all of them at once rather than the first failure.
type Result struct {
	Valid  bool     `json:"is_valid"`
	Errors []string `json:"errors"`
}

// Check evaluates every rule independently and collects all violations.
func Check(password string) Result {
	var violations []string

	// Length bounds count characters, not bytes.
	length := utf8.RuneCountInString(password)
	if length < MinLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters long", MinLength))
	}
	if length > MaxLength {
		violations = append(violations, fmt.Sprintf("password must be at most %d characters long", MaxLength))
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if strings.ContainsRune(specialChars, r) {
			hasSpecial = true
		}
	}

	if !hasLower {
		violations = append(violations, "password must contain at least one lowercase letter")
	}
	if !hasUpper {
		violations = append(violations, "password must contain at least one uppercase letter")
	}
	if !hasDigit {
		violations = append(violations, "password must contain at least one digit")
	}
	if !hasSpecial {
		violations = append(violations, "password must contain at least one special character")
	}

	for _, weak := range commonPasswords {
		if strings.Contains(password, weak) {
			violations = append(violations, "password contains a commonly used password")
			break
		}
	}

	return Result{Valid: len(violations) == 0, Errors: violations}
}
