package summary

import "testing"

func TestSummarize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"first three", "One. Two! Three? Four.", "One. Two. Three."},
		{"fewer than three", "Only this", "Only this."},
		{"empty fragments dropped", "...First.  . Second!!", "First. Second."},
		{"newlines kept inside sentence", "Line one\ncontinues. Next.", "Line one\ncontinues. Next."},
		{"empty", "", Fallback},
		{"punctuation only", " . ! ? ", Fallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.input); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
