package util

import "testing"

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"abcdefghijkl": "abcd...ijkl",
		"abcdef":       "ab...ef",
		"abc":          "a...c",
		"ab":           "ab",
	}
	for in, want := range cases {
		if got := MaskSecret(in); got != want {
			t.Fatalf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskEmail(t *testing.T) {
	if got := MaskEmail(" alice@uni.edu "); got != "a***@uni.edu" {
		t.Fatalf("unexpected masked email %q", got)
	}
}

func TestMaskSensitiveQuery(t *testing.T) {
	got := MaskSensitiveQuery("page=2&code=123456&api_key=abcdefghijkl")
	want := "page=2&code=12...56&api_key=abcd...ijkl"
	if got != want {
		t.Fatalf("MaskSensitiveQuery = %q, want %q", got, want)
	}
	if got := MaskSensitiveQuery("page=1&search=bob"); got != "page=1&search=bob" {
		t.Fatalf("expected untouched query, got %q", got)
	}
}
