package cch

import "testing"

func TestFormatPromptFlattens(t *testing.T) {
	in := "## Scenario\nA property was\\npurchased in 2015.\r\n\tIt was sold\rin 2022."
	got := FormatPrompt(in)
	want := "Scenario A property was purchased in 2015. It was sold in 2022."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatPromptEmpty(t *testing.T) {
	if got := FormatPrompt(""); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatPromptCollapsesWhitespace(t *testing.T) {
	if got := FormatPrompt("  a   b\n\n\nc  "); got != "a b c" {
		t.Fatalf("got %q", got)
	}
}
