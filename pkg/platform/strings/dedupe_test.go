package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "clean roster passes through",
			input:    []string{"Meridian", "Gentex"},
			expected: []string{"Meridian", "Gentex"},
		},
		{
			name:     "padded sponsor collapses onto the clean one",
			input:    []string{"Meridian", " Meridian", "Gentex  "},
			expected: []string{"Meridian", "Gentex"},
		},
		{
			name:     "blank export cells dropped",
			input:    []string{"Flourish San Antonio", "", "   ", "Flourish Dallas"},
			expected: []string{"Flourish San Antonio", "Flourish Dallas"},
		},
		{
			name:     "first-seen order kept across duplicates",
			input:    []string{"CIN-310", "CIN-302", "CIN-310", "GTX-12", "CIN-302"},
			expected: []string{"CIN-310", "CIN-302", "GTX-12"},
		},
		{
			name:     "case differences are distinct values",
			input:    []string{"Meridian", "MERIDIAN"},
			expected: []string{"Meridian", "MERIDIAN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
