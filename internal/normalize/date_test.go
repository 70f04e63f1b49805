package normalize

import (
	"regexp"
	"testing"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func TestDateCanonicalizes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-05-01", "2024-05-01"},
		{"2024-05-01T15:00:00-04:00", "2024-05-01"},
		{"05/01/2024", "2024-05-01"},
		{"5/1/2024", "2024-05-01"},
		{"05/01/2024 3:30 PM", "2024-05-01"},
		{"May 1, 2024", "2024-05-01"},
		{"January 15, 2025 2:00 PM", "2025-01-15"},
		{"15 Jan 2025", "2025-01-15"},
		{"Wed, 01 May 2024 10:00:00 GMT", "2024-05-01"},
		{"  2024-05-01  ", "2024-05-01"},
	}

	for _, tt := range tests {
		if got := Date(tt.in); got != tt.want {
			t.Errorf("Date(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestDateUnparseableReturnsInputUnchanged(t *testing.T) {
	for _, in := range []string{
		"until filled",
		"see solicitation",
		"Q3 FY25",
		"31/31/2024",
	} {
		if got := Date(in); got != in {
			t.Errorf("Date(%q) = %q; want input unchanged", in, got)
		}
	}
}

// Property: the result is either canonical or the input itself, never empty
// for non-empty input and never a third shape.
func TestDateTotalProperty(t *testing.T) {
	inputs := []string{
		"2024-12-31", "tomorrow", "", "12/25/2024", "n/a", "Dec 25, 2024",
	}
	for _, in := range inputs {
		got := Date(in)
		if in == "" {
			if got != "" {
				t.Errorf("Date(%q) = %q; want empty", in, got)
			}
			continue
		}
		if got != in && !isoDate.MatchString(got) {
			t.Errorf("Date(%q) = %q; neither canonical nor unchanged", in, got)
		}
	}
}
