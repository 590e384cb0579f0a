package analytics

import (
	"testing"
)

func TestWordFrequency(t *testing.T) {
	a := &Analytics{}

	fm := a.WordFrequency("Go, go GO! The gopher reads: über-fast Go code.")

	tests := []struct {
		word string
		want int64
	}{
		{word: "go", want: 4},
		{word: "gopher", want: 1},
		{word: "reads", want: 1},
		{word: "über-fast", want: 1},
		{word: "code", want: 1},
		{word: "the", want: 0},
	}
	for _, tt := range tests {
		if got := fm.Get(tt.word); got != tt.want {
			t.Errorf("Get(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}

	// First-seen order
	want := []string{"go", "gopher", "reads", "über-fast", "code"}
	got := fm.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTokenize_MinWordLength(t *testing.T) {
	a := &Analytics{MinWordLength: 4}

	got := a.Tokenize("big data pipelines run fast")
	want := []string{"data", "pipelines", "fast"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokenize()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIsStopword(t *testing.T) {
	tests := []struct {
		word string
		want bool
	}{
		{word: "The", want: true},
		{word: "wouldn't", want: true},
		{word: "aggregate", want: false},
	}
	for _, tt := range tests {
		if got := IsStopword(tt.word); got != tt.want {
			t.Errorf("IsStopword(%q) = %v, want %v", tt.word, got, tt.want)
		}
	}
}
