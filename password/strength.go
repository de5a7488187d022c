package password

import (
	"strings"
	"unicode"
)

// SpecialCharacters is the set that satisfies the special-character rule.
const SpecialCharacters = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// MinLength is the shortest password the strength rules accept.
const MinLength = 8

const (
	msgTooShort  = "Password must be at least 8 characters long"
	msgNoUpper   = "Password must contain at least one uppercase letter"
	msgNoLower   = "Password must contain at least one lowercase letter"
	msgNoDigit   = "Password must contain at least one number"
	msgNoSpecial = "Password must contain at least one special character"
)

// StrengthResult is the outcome of ValidateStrength. Score counts satisfied rules.
type StrengthResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
	Score  int      `json:"score"`
}

// ValidateStrength checks every rule independently and collects all violations.
func ValidateStrength(password string) StrengthResult {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
		if strings.ContainsRune(SpecialCharacters, r) {
			special = true
		}
	}

	res := StrengthResult{Errors: []string{}}
	check := func(ok bool, msg string) {
		if ok {
			res.Score++
			return
		}
		res.Errors = append(res.Errors, msg)
	}

	check(len([]rune(password)) >= MinLength, msgTooShort)
	check(upper, msgNoUpper)
	check(lower, msgNoLower)
	check(digit, msgNoDigit)
	check(special, msgNoSpecial)

	res.Valid = len(res.Errors) == 0
	return res
}
