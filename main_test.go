package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/markis/smooth/internal/args"
	"github.com/markis/smooth/internal/pipeline"
)

// fakeOllama upper-cases each prompt, streaming it word by word. Prompts
// containing "FAIL" are rejected.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if strings.Contains(req.Prompt, "FAIL") {
			http.Error(w, "rejected", http.StatusInternalServerError)
			return
		}
		for _, word := range strings.SplitAfter(strings.ToUpper(req.Prompt), " ") {
			data, _ := json.Marshal(map[string]any{"response": word})
			fmt.Fprintf(w, "%s\n", data)
		}
		fmt.Fprintln(w, `{"response":"","done":true}`)
	}))
}

func setup(t *testing.T, input string) (inPath, outPath string) {
	t.Helper()
	srv := fakeOllama(t)
	t.Cleanup(srv.Close)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("OLLAMA_HOST", srv.URL)

	dir := t.TempDir()
	inPath = filepath.Join(dir, "chapter.txt")
	outPath = filepath.Join(dir, "out.txt")
	if err := os.WriteFile(inPath, []byte(input), 0o600); err != nil {
		t.Fatal(err)
	}
	return inPath, outPath
}

func TestRun_EndToEnd(t *testing.T) {
	input := "the first paragraph\n\nthe second paragraph\n\nthe third one"
	in, out := setup(t, input)

	argv := []string{"--plain", "-q", "--chunk-size", "25", "--concurrency", "2", "-o", out, in}
	if err := run(context.Background(), argv, nil); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := "THE FIRST PARAGRAPH\n\nTHE SECOND PARAGRAPH\n\nTHE THIRD ONE\n"
	if string(got) != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRun_PartialFailure(t *testing.T) {
	in, out := setup(t, "please FAIL here\n\nkeep this")

	argv := []string{"-q", "--chunk-size", "10", "-o", out, in}
	if err := run(context.Background(), argv, nil); err != nil {
		t.Fatal(err)
	}

	got, _ := os.ReadFile(out)
	if string(got) != "\n\nKEEP THIS\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRun_AllChunksFailed(t *testing.T) {
	in, out := setup(t, "FAIL one\n\nFAIL two")

	err := run(context.Background(), []string{"-q", "--chunk-size", "8", "-o", out, in}, nil)
	var all *pipeline.AllChunksFailedError
	if !errors.As(err, &all) {
		t.Fatalf("err = %v, want AllChunksFailedError", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("no output should be written when every chunk fails")
	}
}

func TestRun_InvalidConfiguration(t *testing.T) {
	in, _ := setup(t, "text")

	if err := run(context.Background(), []string{"--chunk-size", "0", in}, nil); err == nil {
		t.Error("expected invalid chunk size to fail")
	}
	if err := run(context.Background(), []string{"--provider", "nope", in}, nil); err == nil {
		t.Error("expected unknown provider to fail")
	}
}

func TestRun_Help(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := run(context.Background(), []string{"--help"}, nil); !errors.Is(err, args.ErrHelpShown) {
		t.Errorf("err = %v", err)
	}
}
