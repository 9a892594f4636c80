package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Ice Axe":               "ice-axe",
		"Crampons (12-point)":   "crampons-12-point-",
		"Down Jacket 800 Fill":  "down-jacket-800-fill",
		"Piolet Léger":          "piolet-l-ger",
		"ÉCLAIR Tent":           "-clair-tent",
		"already-a-slug":        "already-a-slug",
		"Sleeping  Bag -20°C!!": "sleeping-bag-20-c-",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestVerificationCodeFormat(t *testing.T) {
	hex32 := regexp.MustCompile(`^[0-9a-f]{32}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := NewVerificationCode()
		require.NoError(t, err)
		assert.Regexp(t, hex32, code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "GUIDE", 5)
	require.NoError(t, err)

	s, err := ParseAccessToken("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), s.UserID)
	assert.Equal(t, "GUIDE", s.Role)

	_, err = ParseAccessToken("other", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	tok, err := NewAccessToken("secret", 1, "CLIMBER", -1)
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("climber123", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "climber123"))
	assert.False(t, VerifyPassword(h, "wrong"))
}
