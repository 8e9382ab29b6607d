package passwordpolicy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
		contains []string
	}{
		{
			name:     "valid password",
			password: "Password123!",
			valid:    true,
		},
		{
			name:     "strong password",
			password: "Equip#Loan42",
			valid:    true,
		},
		{
			name:     "too short",
			password: "Ab1!",
			valid:    false,
			contains: []string{"at least 8 characters"},
		},
		{
			name:     "too long",
			password: "Ab1!" + strings.Repeat("x", 130),
			valid:    false,
			contains: []string{"at most 128 characters"},
		},
		{
			name:     "multibyte runes count as one character at the upper bound",
			password: "Ä1b!" + strings.Repeat("x", 124),
			valid:    true,
		},
		{
			name:     "129 characters is too long regardless of byte width",
			password: "Ä1b!" + strings.Repeat("x", 125),
			valid:    false,
			contains: []string{"at most 128 characters"},
		},
		{
			name:     "missing uppercase",
			password: "lowercase1!",
			valid:    false,
			contains: []string{"uppercase letter"},
		},
		{
			name:     "missing digit",
			password: "NoDigitsHere!",
			valid:    false,
			contains: []string{"one digit"},
		},
		{
			name:     "missing special",
			password: "NoSpecials123",
			valid:    false,
			contains: []string{"special character"},
		},
		{
			name:     "common password reports every violation",
			password: "password",
			valid:    false,
			contains: []string{
				"uppercase letter",
				"one digit",
				"special character",
				"commonly used",
			},
		},
		{
			name:     "deny list matches anywhere in the candidate",
			password: "Xqwerty12#Z",
			valid:    false,
			contains: []string{"commonly used"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Check(tc.password)
			assert.Equal(t, tc.valid, res.Valid)
			for _, fragment := range tc.contains {
				found := false
				for _, msg := range res.Errors {
					if strings.Contains(msg, fragment) {
						found = true
						break
					}
				}
				assert.True(t, found, "expected a violation containing %q, got %v", fragment, res.Errors)
			}
			if tc.valid {
				assert.Empty(t, res.Errors)
			}
		})
	}
}

func TestCheckReportsAllViolationsTogether(t *testing.T) {
	res := Check("password")
	require.False(t, res.Valid)
	// Uppercase, digit, special and deny-list rules all fire on one input.
	assert.Len(t, res.Errors, 4)
}
