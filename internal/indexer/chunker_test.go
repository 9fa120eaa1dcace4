package indexer

import (
	"fmt"
	"strings"
	"testing"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestChunk_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t  \n"} {
		if got := Chunk(input, 500, 50); len(got) != 0 {
			t.Errorf("Chunk(%q) = %d chunks, want 0", input, len(got))
		}
	}
}

func TestChunk_SingleWindow(t *testing.T) {
	got := Chunk("one two three", 500, 50)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0] != "one two three" {
		t.Errorf("chunk = %q", got[0])
	}
}

func TestChunk_WindowAndOverlap(t *testing.T) {
	// 1200 words with window 500 and overlap 50 advance by 450 per step:
	// [0,500) [450,950) [900,1200).
	got := Chunk(words(1200), 500, 50)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	first := strings.Fields(got[0])
	second := strings.Fields(got[1])
	third := strings.Fields(got[2])

	if len(first) != 500 || first[0] != "w0" || first[499] != "w499" {
		t.Errorf("first window = %d words [%s..%s]", len(first), first[0], first[len(first)-1])
	}
	if len(second) != 500 || second[0] != "w450" || second[499] != "w949" {
		t.Errorf("second window = %d words [%s..%s]", len(second), second[0], second[len(second)-1])
	}
	if len(third) != 300 || third[0] != "w900" || third[299] != "w1199" {
		t.Errorf("third window = %d words [%s..%s]", len(third), third[0], third[len(third)-1])
	}

	// Overlap: last 50 words of one window open the next.
	if first[450] != second[0] {
		t.Errorf("windows do not overlap: %s vs %s", first[450], second[0])
	}
}

func TestChunk_RoundTrip(t *testing.T) {
	// Concatenating chunks minus their overlaps reproduces the input tokens.
	input := words(1200)
	chunks := Chunk(input, 500, 50)

	var rebuilt []string
	for i, chunk := range chunks {
		tokens := strings.Fields(chunk)
		if i > 0 {
			tokens = tokens[50:]
		}
		rebuilt = append(rebuilt, tokens...)
	}
	if strings.Join(rebuilt, " ") != input {
		t.Error("chunks do not reassemble into the original token stream")
	}
}

func TestChunk_Deterministic(t *testing.T) {
	input := words(1337)
	a := Chunk(input, 500, 50)
	b := Chunk(input, 500, 50)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs", i)
		}
	}
}

func TestChunk_InvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		window  int
		overlap int
	}{
		{"zero window", 0, 0},
		{"negative overlap", 10, -1},
		{"overlap equals window", 10, 10},
		{"overlap exceeds window", 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Chunk(words(100), tt.window, tt.overlap); got != nil {
				t.Errorf("Chunk() = %d chunks, want nil", len(got))
			}
		})
	}
}

func TestChunk_NormalizesWhitespace(t *testing.T) {
	got := Chunk("a\tb\n\nc   d", 2, 0)
	if len(got) != 2 || got[0] != "a b" || got[1] != "c d" {
		t.Errorf("Chunk() = %v, want [a b] [c d]", got)
	}
}
