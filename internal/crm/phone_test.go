package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"+15551234567", "+15551234567"},
		{"555-123-4567", "5551234567"},
		{"(555) 123-4567", "5551234567"},
		{"+44 20 7946 0958", "+442079460958"},
		{"555.123.4567", "5551234567"},
		{"  5551234  ", "5551234"},
	}

	for _, tc := range cases {
		got, err := NormalizePhone(tc.raw)
		require.NoError(t, err, "raw %q", tc.raw)
		assert.Equal(t, tc.want, got, "raw %q", tc.raw)
	}
}

func TestNormalizePhoneInvalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"call me",
		"555-123",             // too short
		"12345678901234567",   // too long
		"555+1234567",         // plus not leading
		"555-123-4567 ext. 9", // letters
	} {
		_, err := NormalizePhone(raw)
		assert.ErrorIs(t, err, ErrInvalidPhone, "raw %q", raw)
	}
}
