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
			name:     "nil stays nil",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty stays empty",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims padding",
			input:    []string{"  https://a.example  ", "https://b.example "},
			expected: []string{"https://a.example", "https://b.example"},
		},
		{
			name:     "first occurrence wins",
			input:    []string{"https://a.example", "https://b.example", "https://a.example"},
			expected: []string{"https://a.example", "https://b.example"},
		},
		{
			name:     "drops blanks",
			input:    []string{"https://a.example", "", "   ", "https://b.example"},
			expected: []string{"https://a.example", "https://b.example"},
		},
		{
			name:     "case is significant",
			input:    []string{"https://A.example", "https://a.example"},
			expected: []string{"https://A.example", "https://a.example"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil stays nil",
			input:    nil,
			expected: nil,
		},
		{
			name:     "case variants are one tag",
			input:    []string{"Roofing", "roofing", "ROOFING"},
			expected: []string{"roofing"},
		},
		{
			name:     "trim then fold then dedupe",
			input:    []string{"  Carpentry ", "plumbing", "carpentry", "PLUMBING"},
			expected: []string{"carpentry", "plumbing"},
		},
		{
			name:     "whitespace-only entries vanish",
			input:    []string{" ", "Welding", "\t"},
			expected: []string{"welding"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}
