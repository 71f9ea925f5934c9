package chunk

import (
	"errors"
	"strings"
	"testing"
)

func TestSplit_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Split("hello", size)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("size %d: got %v, want ErrInvalidArgument", size, err)
		}
	}
}

func TestSplit_Empty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\n \n"} {
		chunks, err := Split(text, 100)
		if err != nil {
			t.Fatalf("split %q: %v", text, err)
		}
		if chunks != nil {
			t.Errorf("split %q: got %v, want nil", text, chunks)
		}
	}
}

func TestSplit_TwoParagraphsTwoChunks(t *testing.T) {
	a := strings.Repeat("a", 100)
	b := strings.Repeat("b", 100)

	chunks, err := Split(a+"\n\n"+b, 150)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Text != a || chunks[1].Text != b {
		t.Errorf("chunks = %q, %q", chunks[0].Text, chunks[1].Text)
	}
	if chunks[0].Index != 0 || chunks[1].Index != 1 {
		t.Errorf("indices = %d, %d", chunks[0].Index, chunks[1].Index)
	}
}

func TestSplit_GreedyAccumulation(t *testing.T) {
	text := "one\n\ntwo\n\nthree\n\nfour"
	// "one\n\ntwo" is 8 bytes, adding "\n\nthree" would make 15.
	chunks, err := Split(text, 11)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"one\n\ntwo", "three\n\nfour"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d: %q", len(chunks), len(want), chunks)
	}
	for i, c := range chunks {
		if c.Text != want[i] {
			t.Errorf("chunk[%d] = %q, want %q", i, c.Text, want[i])
		}
	}
}

func TestSplit_OversizedParagraph(t *testing.T) {
	long := strings.Repeat("x", 500)
	chunks, err := Split("short\n\n"+long+"\n\ntail", 50)
	if err != nil {
		t.Fatalf("oversized paragraph must not fail: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[1].Text != long {
		t.Errorf("oversized paragraph was altered")
	}
}

func TestSplit_BoundaryWhitespace(t *testing.T) {
	text := "  first line\r\n \r\n\n  second  \n\t\n"
	chunks, err := Split(text, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "first line\n\nsecond" {
		t.Errorf("text = %q", chunks[0].Text)
	}
}

func TestSplit_CoverageAndSizeBound(t *testing.T) {
	var paras []string
	for i := 0; i < 40; i++ {
		paras = append(paras, strings.Repeat(string(rune('a'+i%26)), 10+i*7))
	}
	text := strings.Join(paras, "\n\n")

	for _, size := range []int{1, 50, 120, 400, 10000} {
		chunks, err := Split(text, size)
		if err != nil {
			t.Fatal(err)
		}

		var got []string
		for i, c := range chunks {
			if c.Index != i {
				t.Errorf("size %d: chunk[%d] index %d", size, i, c.Index)
			}
			ps := Paragraphs(c.Text)
			if len(c.Text) > size && len(ps) != 1 {
				t.Errorf("size %d: chunk[%d] is %d bytes with %d paragraphs", size, i, len(c.Text), len(ps))
			}
			got = append(got, ps...)
		}
		if strings.Join(got, "|") != strings.Join(paras, "|") {
			t.Errorf("size %d: paragraphs lost, duplicated or reordered", size)
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor\n\n", 50)
	a, _ := Split(text, 64)
	b, _ := Split(text, 64)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk[%d] differs", i)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join([]string{"", "b"}); got != "\n\nb" {
		t.Errorf("Join = %q", got)
	}
}
