package stripe

import (
	"testing"
	"time"
)

func TestSafeUnix(t *testing.T) {
	cases := []struct {
		name  string
		input int64
		want  *time.Time
	}{
		{name: "zero", input: 0, want: nil},
		{name: "negative", input: -5, want: nil},
		{name: "valid", input: 1704067200, want: timePtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SafeUnix(tc.input)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("SafeUnix(%d) = %v, want %v", tc.input, got, tc.want)
			}
			if got != nil && !got.Equal(*tc.want) {
				t.Fatalf("SafeUnix(%d) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestSafeUnixFloatNeverPanics(t *testing.T) {
	inputs := []any{nil, "not-a-number", map[string]any{}, float64(0), float64(-5), float64(1704067200), int(42), int64(42)}
	for _, input := range inputs {
		got := SafeUnixFloat(input)
		switch input {
		case float64(1704067200), int(42), int64(42):
			if got == nil {
				t.Fatalf("expected non-nil for %v", input)
			}
		default:
			if got != nil {
				t.Fatalf("expected nil for %#v, got %v", input, got)
			}
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }
