package pool

import "testing"

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "already normal", raw: "AB12CD", want: "AB12CD"},
		{name: "lowercase", raw: "ab12cd", want: "AB12CD"},
		{name: "surrounding whitespace", raw: "  ab12cd\n", want: "AB12CD"},
		{name: "empty", raw: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCode(tt.raw); got != tt.want {
				t.Errorf("NormalizeCode(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "valid", code: "AB12CD", want: true},
		{name: "too short", code: "AB12C", want: false},
		{name: "too long", code: "AB12CDE", want: false},
		{name: "lowercase not allowed", code: "ab12cd", want: false},
		{name: "symbol", code: "AB12C!", want: false},
		{name: "empty", code: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidCode(tt.code); got != tt.want {
				t.Errorf("ValidCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
