package domain

import (
	"strings"
	"testing"
)

func TestKeyFromToken(t *testing.T) {
	cases := []struct {
		token string
		want  string
	}{
		{"abc123", "abc123"},
		{"store_cafe-1", "store_cafe-1"},
		{"has spaces", "hasspaces"},
		{"slash/dot.", "slashdot"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := KeyFromToken(tc.token); got != tc.want {
			t.Fatalf("KeyFromToken(%q) = %q, want %q", tc.token, got, tc.want)
		}
	}

	long := strings.Repeat("a", 250)
	if got := KeyFromToken(long); len(got) != MaxKeyLen {
		t.Fatalf("expected truncation to %d, got %d", MaxKeyLen, len(got))
	}
}

func TestValidToken(t *testing.T) {
	for _, token := range []string{"abc123", "store_cafe", "A-B_c9"} {
		if !ValidToken(token) {
			t.Fatalf("expected %q valid", token)
		}
	}

	invalid := []string{"", "has spaces", "semi;colon", "a/b", strings.Repeat("a", 201)}
	for _, token := range invalid {
		if ValidToken(token) {
			t.Fatalf("expected %q invalid", token)
		}
	}
}
