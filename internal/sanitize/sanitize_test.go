package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already clean", "acme", "acme"},
		{"uppercase lowered", "ACME", "acme"},
		{"mixed case with punctuation", "My-Registry!", "my-registry"},
		{"spaces removed", "my registry", "myregistry"},
		{"digits and hyphens kept", "team-42", "team-42"},
		{"unicode stripped", "café™", "caf"},
		{"dots stripped", "a.b.c", "abc"},
		{"empty stays empty", "", ""},
		{"nothing survives", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ID(tt.input))
		})
	}
}

func TestID_Idempotent(t *testing.T) {
	inputs := []string{"acme", "My-Registry!", "café™", "a b c", "UPPER-lower-123", "", "---"}
	for _, s := range inputs {
		once := ID(s)
		assert.Equal(t, once, ID(once), "sanitize must be idempotent for %q", s)
	}
}

func TestIsClean(t *testing.T) {
	assert.True(t, IsClean("acme"))
	assert.True(t, IsClean("team-42"))
	assert.False(t, IsClean("My-Registry!"))
	assert.False(t, IsClean("ACME"))
	assert.False(t, IsClean(""))
}
