package render

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/cli/go-gh/v2/pkg/markdown"

	"github.com/markis/smooth/internal/chunk"
	"github.com/markis/smooth/internal/pipeline"
)

// Options configures a TerminalRenderer.
type Options struct {
	PlainText bool
	// Live enables the progress status line on Status.
	Live  bool
	Wrap  int
	Theme string
	Out   io.Writer
	// Status receives progress lines, usually stderr.
	Status io.Writer
}

// TerminalRenderer shows rewrite progress and prints the final text.
type TerminalRenderer struct {
	markdown  *glamour.TermRenderer
	plainText bool
	live      bool
	out       io.Writer
	status    io.Writer

	mu       sync.Mutex
	total    int
	settled  int
	failed   int
	received int
	start    time.Time
}

func NewTerminalRenderer(opts Options) *TerminalRenderer {
	var md *glamour.TermRenderer
	if !opts.PlainText {
		wrap := opts.Wrap
		if wrap <= 0 {
			wrap = 120
		}
		style := glamour.WithAutoStyle()
		if opts.Theme != "" {
			style = markdown.WithTheme(opts.Theme)
		}
		md, _ = glamour.NewTermRenderer(markdown.WithWrap(wrap), style)
	}

	return &TerminalRenderer{
		markdown:  md,
		plainText: opts.PlainText || md == nil,
		live:      opts.Live && opts.Status != nil,
		out:       opts.Out,
		status:    opts.Status,
		start:     time.Now(),
	}
}

// Start resets the counters for a run over total chunks.
func (t *TerminalRenderer) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total, t.settled, t.failed, t.received = total, 0, 0, 0
	t.start = time.Now()
	t.drawLocked()
}

// Progress records the latest snapshot. It is a pipeline.ProgressFunc.
// Only rewritten text is counted, not the separators between chunks.
func (t *TerminalRenderer) Progress(snapshot string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	separators := max(t.total-1, 0) * len(chunk.Separator)
	t.received = max(len(snapshot)-separators, 0)
	t.drawLocked()
}

// ChunkSettled counts a finished chunk.
func (t *TerminalRenderer) ChunkSettled(r pipeline.ChunkReport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settled++
	if r.Status == pipeline.Failed {
		t.failed++
	}
	t.drawLocked()
}

// Finish clears the status line.
func (t *TerminalRenderer) Finish() {
	if !t.live {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.status, "\r\033[K")
}

func (t *TerminalRenderer) drawLocked() {
	if !t.live {
		return
	}
	line := fmt.Sprintf("rewriting: %d/%d chunks, %d chars, %s",
		t.settled, t.total, t.received, time.Since(t.start).Round(time.Second))
	if t.failed > 0 {
		line += fmt.Sprintf(", %d failed", t.failed)
	}
	fmt.Fprint(t.status, "\r\033[K"+line)
}

// Render prints the final text, section by section at paragraph breaks.
func (t *TerminalRenderer) Render(text string) error {
	content := text
	for content != "" {
		idx := findMarkdownBreakPoint(content)
		if idx <= 0 {
			break
		}
		if err := t.renderContent(content[:idx]); err != nil {
			return err
		}
		content = content[idx:]
	}

	if content != "" {
		if err := t.renderContent(content); err != nil {
			return err
		}
	}

	fmt.Fprintln(t.out)
	return nil
}

func (t *TerminalRenderer) renderContent(content string) error {
	if t.plainText {
		fmt.Fprint(t.out, content)
		return nil
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if strings.HasPrefix(content, "#") {
		fmt.Fprintln(t.out)
	}

	mdContent, err := t.markdown.Render(content)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	fmt.Fprintln(t.out, strings.TrimSpace(mdContent))
	return nil
}

// findMarkdownBreakPoint returns the offset just past the first paragraph
// break, or -1 when there is none.
func findMarkdownBreakPoint(content string) int {
	const marker string = "\n\n"
	idx := strings.Index(content, marker)
	if idx < 0 {
		return -1
	}
	return idx + len(marker)
}
