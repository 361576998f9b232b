package util

import "testing"

func TestMaskToken(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"abc":               "***",
		"12345678":          "***",
		"AbCdEfGh1234567xy": "AbCd…xy",
	}
	for in, want := range cases {
		if got := MaskToken(in); got != want {
			t.Fatalf("MaskToken(%q) = %q, want %q", in, got, want)
		}
	}
}
