package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	scotland := "\U0001F3F4\U000E0067\U000E0062\U000E0073\U000E0063\U000E0074\U000E007F"

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single country flag", "Brazil 🇧🇷 fan", []string{"🇧🇷"}},
		{"no flag", "plain name", []string{}},
		{"empty", "", []string{}},
		{"several flags in order", "🇺🇦 and 🇵🇱🇩🇪", []string{"🇺🇦", "🇵🇱", "🇩🇪"}},
		{"subdivision flag", "Go " + scotland, []string{scotland}},
		{"lone regional indicator", "🇧 alone", []string{}},
		{"odd run pairs left to right", "🇧🇷🇦", []string{"🇧🇷"}},
		{"black flag without tags", "\U0001F3F4 pirate", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.input)
			assert.NotNil(t, got)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("Brazil 🇧🇷 fan"))
	assert.False(t, Contains("plain name"))
}
