// Package source retrieves chapter pages and pulls their readable text.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/markis/smooth/internal/chunk"
)

// maxPageSize bounds how much of a chapter page is read.
const maxPageSize = 16 << 20

// Fetch downloads a page, optionally through a proxy that takes the
// query-escaped target URL appended to its own.
func Fetch(ctx context.Context, hc *http.Client, pageURL, proxy string) (string, error) {
	target := pageURL
	if proxy != "" {
		target = proxy + url.QueryEscape(pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch chapter: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("failed to fetch chapter: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("failed to read chapter: %w", err)
	}
	return string(data), nil
}

// fallbackClasses are tried in order when a page has no .translated sentences.
var fallbackClasses = []string{"chapter-body", "text-content"}

// Extract returns the chapter text of an HTML page. Sentences marked with
// the "translated" class become paragraphs; otherwise the text of the first
// recognised content container is used. It returns "" when nothing matches.
func Extract(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	var sentences []string
	for _, n := range findAll(doc, func(n *html.Node) bool { return hasClass(n, "translated") }) {
		if text := strings.TrimSpace(textContent(n)); text != "" {
			sentences = append(sentences, text)
		}
	}
	if len(sentences) > 0 {
		return chunk.Join(sentences), nil
	}

	matchers := make([]func(*html.Node) bool, 0, len(fallbackClasses)+2)
	for _, class := range fallbackClasses {
		matchers = append(matchers, func(n *html.Node) bool { return hasClass(n, class) })
	}
	matchers = append(matchers,
		func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == atom.Article },
		func(n *html.Node) bool { return hasClass(n, "content") },
	)
	for _, match := range matchers {
		if nodes := findAll(doc, match); len(nodes) > 0 {
			return strings.TrimSpace(textContent(nodes[0])), nil
		}
	}
	return "", nil
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "class" && strings.Contains(" "+strings.Join(strings.Fields(a.Val), " ")+" ", " "+class+" ") {
			return true
		}
	}
	return false
}

// findAll returns matching nodes in document order without descending into matches.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	if match(n) {
		return []*html.Node{n}
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, findAll(c, match)...)
	}
	return out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Chapter locates a chapter URL within its series.
type Chapter struct {
	Number int
	Prev   string
	Next   string
}

var chapterPattern = regexp.MustCompile(`(?i)(-|/c|chapter[-_])(\d+)`)

// ParseChapterURL reads the chapter number from URLs such as
// ".../chapter-123", ".../c123" or ".../chapter_123" and derives the
// neighbouring chapters. ok is false when no number is found.
func ParseChapterURL(u string) (ch Chapter, ok bool) {
	m := chapterPattern.FindStringSubmatchIndex(u)
	if m == nil {
		return Chapter{}, false
	}
	num, err := strconv.Atoi(u[m[4]:m[5]])
	if err != nil {
		return Chapter{}, false
	}

	prefix := u[m[2]:m[3]]
	with := func(n int) string {
		return u[:m[2]] + prefix + strconv.Itoa(n) + u[m[5]:]
	}

	ch = Chapter{Number: num, Next: with(num + 1)}
	if num > 1 {
		ch.Prev = with(num - 1)
	}
	return ch, true
}
