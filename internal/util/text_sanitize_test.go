package util

import "testing"

func TestSanitizeTextRemovesNulAndControls(t *testing.T) {
	in := "Section 1\x00 applies\x01\x02\n\tto employers"
	out := SanitizeText(in)
	if out != "Section 1 applies\n\tto employers" {
		t.Fatalf("unexpected sanitized output: %q", out)
	}
}

func TestSanitizeTextKeepsEmpty(t *testing.T) {
	if out := SanitizeText(""); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
