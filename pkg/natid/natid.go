// Package natid validates national identity document numbers using the
// 11-digit two-check-digit scheme (CPF style).
package natid

import (
	"strings"
)

// Normalize strips formatting characters (dots, dashes, slashes, spaces)
// from a document number, leaving only digits.
func Normalize(document string) string {
	var b strings.Builder
	b.Grow(len(document))
	for _, r := range document {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether the document number is a structurally valid
// 11-digit identity number. Formatting characters are ignored. Numbers
// made of a single repeated digit are rejected even though their check
// digits verify.
func Valid(document string) bool {
	digits := Normalize(document)
	if len(digits) != 11 {
		return false
	}

	repeated := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			repeated = false
			break
		}
	}
	if repeated {
		return false
	}

	if checkDigit(digits, 9) != int(digits[9]-'0') {
		return false
	}
	return checkDigit(digits, 10) == int(digits[10]-'0')
}

// checkDigit computes the verification digit over the first n digits.
// The weights run from n+1 down to 2.
func checkDigit(digits string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(digits[i]-'0') * (n + 1 - i)
	}
	rem := (sum * 10) % 11
	if rem == 10 {
		return 0
	}
	return rem
}
