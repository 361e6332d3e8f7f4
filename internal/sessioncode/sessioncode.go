// Package sessioncode generates the short codes that link a control device to
// a customer display.
package sessioncode

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Alphabet omits I, O, 0 and 1.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const Length = 6

// Demo is reserved for canned content and never touches the store.
const Demo = "DEMO"

// New returns a random code. Codes are not checked for collisions; the store's
// unique constraint rejects a duplicate insert.
func New() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	// len(Alphabet) divides 256, so the modulo is unbiased
	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}

// Normalize upper-cases and trims a user supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code (after normalisation) could have come from New.
func Valid(code string) bool {
	code = Normalize(code)
	if len(code) != Length {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(Alphabet, c) {
			return false
		}
	}
	return true
}

func IsDemo(code string) bool {
	return Normalize(code) == Demo
}
