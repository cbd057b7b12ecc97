package util

import (
	"testing"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  nightly  ", "nightly"},
		{"removes control chars", "night\x00ly", "nightly"},
		{"removes tabs and newlines", "line1\n\tline2", "line1line2"},
		{"empty string", "", ""},
		{"no changes needed", "clean", "clean"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeString(tc.input)
			if got != tc.want {
				t.Errorf("SanitizeString(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
