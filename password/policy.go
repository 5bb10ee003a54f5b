package password

import (
	"errors"
	"math"
	"strings"
	"unicode"
)

const (
	// MinLength and MaxLength bound password size in bytes.
	MinLength = 8
	MaxLength = 256

	// minEntropyBits is the floor for the estimated strength of a
	// password that already satisfies the class requirements.
	minEntropyBits = 45
)

// Policy validation errors. Callers surface these as field-level
// validation detail; the messages are user-facing.
var (
	ErrTooShort     = errors.New("password must be at least 8 characters")
	ErrTooLong      = errors.New("password must be at most 256 characters")
	ErrMissingClass = errors.New("password must contain lowercase, uppercase, digit, and symbol characters")
	ErrCommon       = errors.New("password is too common")
	ErrLowEntropy   = errors.New("password is too predictable")
)

// commonPasswords is the embedded blacklist, matched case-insensitively.
// Entries are the most frequent leaked passwords that also satisfy (or
// nearly satisfy) the class rules once users apply the usual mutations.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password1!":  {},
	"password123": {},
	"p@ssw0rd":    {},
	"p@ssword1":   {},
	"passw0rd!":   {},
	"qwerty123":   {},
	"qwerty123!":  {},
	"1q2w3e4r":    {},
	"1qaz2wsx":    {},
	"iloveyou1":   {},
	"welcome1":    {},
	"welcome123":  {},
	"admin123":    {},
	"letmein1":    {},
	"monkey123":   {},
	"dragon123":   {},
	"sunshine1":   {},
	"princess1":   {},
	"football1":   {},
	"baseball1":   {},
	"superman1":   {},
	"trustno1":    {},
	"master123":   {},
	"shadow123":   {},
	"abc123456":   {},
	"123456789":   {},
	"12345678":    {},
	"987654321":   {},
}

// Validate applies the full registration/reset strength policy: length
// bounds, the four character classes, the common-password blacklist, and a
// minimum entropy estimate. Login flows must not call this; they only
// require non-empty input.
func Validate(password string) error {
	if len(password) < MinLength {
		return ErrTooShort
	}
	if len(password) > MaxLength {
		return ErrTooLong
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return ErrMissingClass
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return ErrCommon
	}

	if estimateEntropy(password) < minEntropyBits {
		return ErrLowEntropy
	}

	return nil
}

// estimateEntropy approximates strength as unique-rune count times the
// log2 of the character pool implied by the classes present. Using unique
// runes rather than raw length keeps "aaaaAAAA1!" from scoring as well as
// a genuinely varied password.
func estimateEntropy(password string) float64 {
	var pool float64
	var lower, upper, digit, symbol bool

	unique := make(map[rune]struct{}, len(password))
	for _, r := range password {
		unique[r] = struct{}{}
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	if lower {
		pool += 26
	}
	if upper {
		pool += 26
	}
	if digit {
		pool += 10
	}
	if symbol {
		pool += 33
	}
	if pool == 0 {
		return 0
	}

	return float64(len(unique)) * math.Log2(pool)
}
