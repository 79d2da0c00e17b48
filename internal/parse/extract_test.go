package parse

import (
	"testing"
)

func TestExtractTaskText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "lead-in and offset", text: "remind me to call mom in 2 hours", want: "call mom"},
		{name: "trailing connector", text: "Doctor appointment on Friday at 2:30pm", want: "Doctor appointment"},
		{name: "by connector", text: "Pay bills by Friday", want: "Pay bills"},
		{name: "set a reminder", text: "set a reminder to submit the report tomorrow at 9am", want: "submit the report"},
		{name: "reminder to", text: "reminder to water plants tonight", want: "water plants"},
		{name: "trailing punctuation", text: "remind me to stretch, in 30 minutes", want: "stretch"},
		{name: "no lead-in", text: "Call John in 2 hours", want: "Call John"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Resolve(tt.text, ref)
			if !ok {
				t.Fatalf("Resolve(%q) found nothing", tt.text)
			}
			got := Extract(tt.text, m)
			if got != tt.want {
				t.Fatalf("Extract(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractDegenerateFallsBackToExcerpt(t *testing.T) {
	t.Parallel()
	// Everything in the message is lead-in or time expression, so the
	// extractor excerpts the first words of the original text.
	text := "remind me at 9am"
	m, ok := Resolve(text, ref)
	if !ok {
		t.Fatal("expected a match")
	}
	got := Extract(text, m)
	if got != "remind me at" {
		t.Fatalf("Extract = %q, want %q", got, "remind me at")
	}
}

func TestExtractNeverEmpty(t *testing.T) {
	t.Parallel()
	// Property from the engine contract: whenever Resolve finds an
	// expression, Extract returns a non-empty string.
	inputs := []string{
		"remind me to call mom in 2 hours",
		"remind me at 9am",
		"9am",
		"remind tomorrow",
		"at 2:30pm",
		"set a reminder for tomorrow at 12am",
		"Doctor appointment on Friday at 2:30pm",
	}
	for _, text := range inputs {
		m, ok := Resolve(text, ref)
		if !ok {
			t.Fatalf("Resolve(%q) found nothing", text)
		}
		if got := Extract(text, m); got == "" {
			t.Fatalf("Extract(%q) returned empty string", text)
		}
	}
}
