package decode

import "testing"

func TestPostProcess(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"trim and collapse", "  hello   world  ", "Hello world."},
		{"capitalize after sentence", "it is good. ok", "It is good. Ok."},
		{"keeps existing period", "done.", "Done."},
		{"keeps exclamation", "stop!", "Stop!"},
		{"keeps question mark", "why?", "Why?"},
		{"single word", "hello", "Hello."},
		{"empty input", "", NoSpeechText},
		{"whitespace only", "   \t  ", NoSpeechText},
		{"multiple sentences", "one. two. three", "One. Two. Three."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PostProcess(tt.input); got != tt.expected {
				t.Errorf("PostProcess(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestVocabularyRender(t *testing.T) {
	vocab, err := NewVocabulary([]string{"he", "llo", "|"}, "|")
	if err != nil {
		t.Fatalf("NewVocabulary failed: %v", err)
	}

	if got := vocab.Render(0); got != "he" {
		t.Errorf("Expected %q, got %q", "he", got)
	}

	if got := vocab.Render(2); got != " " {
		t.Errorf("Expected boundary marker rendered as space, got %q", got)
	}
}
