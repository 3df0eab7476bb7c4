package record

import (
	"encoding/json"
	"testing"
)

func TestCanonicalID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "plain string", in: "A1", want: "A1"},
		{name: "surrounding whitespace", in: "  R77 \n", want: "R77"},
		{name: "nil", in: nil, want: ""},
		{name: "large float keeps every digit", in: float64(1712345678901), want: "1712345678901"},
		{name: "json number literal", in: json.Number("1712345678901"), want: "1712345678901"},
		{name: "json number in exponent form", in: json.Number("1.712345678901e+12"), want: "1712345678901"},
		{name: "fractional float", in: 12.5, want: "12.5"},
		{name: "int", in: 42, want: "42"},
		{name: "int64", in: int64(9007199254740993), want: "9007199254740993"},
		{name: "numeric string is not reformatted", in: " 1.5e3 ", want: "1.5e3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalID(tt.in); got != tt.want {
				t.Errorf("CanonicalID(%#v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalID_Idempotent(t *testing.T) {
	inputs := []any{" A1 ", float64(1712345678901), json.Number("1e3"), "temp-123"}
	for _, in := range inputs {
		once := CanonicalID(in)
		if twice := CanonicalID(once); twice != once {
			t.Errorf("CanonicalID(CanonicalID(%#v)) = %q, want %q", in, twice, once)
		}
	}
}
