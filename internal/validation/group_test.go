package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateGroupSlug(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		slug    string
		wantErr bool
	}{
		{"Valid", "grief-support", false},
		{"Valid With Digits", "sobriety-2026", false},
		{"Minimum Length", "abc", false},
		{"Too Short", "ab", true},
		{"Too Long", strings.Repeat("a", 25), true},
		{"Uppercase", "Grief", true},
		{"Underscore", "new_parents", true},
		{"Leading Hyphen", "-grief", true},
		{"Trailing Hyphen", "grief-", true},
		{"Reserved Moderation", "moderation", true},
		{"Reserved Admin", "admin", true},
		{"Reserved Rooms", "rooms", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGroupSlug(tt.slug)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateReason(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateReason(""))
	assert.NoError(t, ValidateReason("repeated guideline violations"))
	assert.NoError(t, ValidateReason(strings.Repeat("x", 500)))
	assert.Error(t, ValidateReason(strings.Repeat("x", 501)))
}
