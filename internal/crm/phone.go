package crm

import (
	"errors"
	"strings"
)

// Phone number length bounds after normalization, per E.164.
const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// ErrInvalidPhone indicates a phone value that cannot identify a profile.
// Documents with invalid phones are skipped for the profile sink but still
// mirrored to the tabular sink.
var ErrInvalidPhone = errors.New("crm: invalid phone number")

// NormalizePhone canonicalizes a raw phone value: formatting characters
// (spaces, dashes, dots, parentheses) are stripped, a single leading "+" is
// preserved, and the digit count must land within E.164 bounds.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder

	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			// formatting noise
		default:
			return "", ErrInvalidPhone
		}
	}

	normalized := b.String()

	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", ErrInvalidPhone
	}

	return normalized, nil
}
