package attachments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateID(t *testing.T) {
	valid := []string{
		"a",
		"abc123",
		"ABC-def_123",
		"-",
		"_",
		"0123456789",
		"f81d4fae-7dec-11d0-a765-00a0c91e6bf6", // UUIDs are valid ids
	}
	for _, id := range valid {
		assert.NoError(t, ValidateID(id), "id %q should be valid", id)
	}

	assert.ErrorIs(t, ValidateID(""), ErrEmptyID)

	invalid := []string{
		"a.b",
		"a b",
		"a/b",
		"a\\b",
		"..",
		"id!",
		"café",
		"a\x00b",
	}
	for _, id := range invalid {
		assert.ErrorIs(t, ValidateID(id), ErrInvalidID, "id %q should be rejected", id)
	}
}

func TestNormalizeExtension(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"png":     ".png",
		".png":    ".png",
		"..png..": ".png",
		" .jpg ":  ".jpg",
		".PNG":    ".PNG", // case preserved
		"tar.gz":  ".tar.gz",
		" ":       "",
		"...":     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeExtension(in), "input %q", in)
	}
}

func TestNormalizeExtensionRoundTripsThroughPath(t *testing.T) {
	// The normalized suffix must join cleanly with an id.
	require.Equal(t, "att-1.jpg", "att-1"+NormalizeExtension(" .jpg "))
	require.Equal(t, "att-1", "att-1"+NormalizeExtension(""))
}
