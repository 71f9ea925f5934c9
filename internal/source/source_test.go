package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtract_TranslatedSentences(t *testing.T) {
	page := `<html><body>
<div class="chapter-body">
  <sentence class="original">原文</sentence>
  <sentence class="translated">  He opened the door. </sentence>
  <sentence class="translated highlighted">She <b>smiled</b>.</sentence>
  <sentence class="translated">   </sentence>
</div></body></html>`

	got, err := Extract(page)
	if err != nil {
		t.Fatal(err)
	}
	if want := "He opened the door.\n\nShe smiled."; got != want {
		t.Errorf("Extract = %q, want %q", got, want)
	}
}

func TestExtract_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{"chapter body", `<div class="chapter-body"> Body text <script>var x</script></div><article>no</article>`, "Body text"},
		{"text content", `<div class="text-content">Plain</div>`, "Plain"},
		{"article", `<nav>menu</nav><article><p>Story</p></article>`, "Story"},
		{"content", `<div class="main content">Last resort</div>`, "Last resort"},
		{"nothing", `<p>just a page</p>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.page)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Extract = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chapter-1":
			w.Write([]byte("<p>direct</p>"))
		case "/proxy":
			if r.URL.Query().Get("url") != "https://lnmtl.com/chapter-2" {
				t.Errorf("proxied url = %q", r.URL.Query().Get("url"))
			}
			w.Write([]byte("<p>proxied</p>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	got, err := Fetch(ctx, srv.Client(), srv.URL+"/chapter-1", "")
	if err != nil || got != "<p>direct</p>" {
		t.Errorf("direct fetch = %q, %v", got, err)
	}

	got, err = Fetch(ctx, srv.Client(), "https://lnmtl.com/chapter-2", srv.URL+"/proxy?url=")
	if err != nil || got != "<p>proxied</p>" {
		t.Errorf("proxied fetch = %q, %v", got, err)
	}

	if _, err := Fetch(ctx, srv.Client(), srv.URL+"/missing", ""); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("missing page err = %v", err)
	}
}

func TestParseChapterURL(t *testing.T) {
	tests := []struct {
		url  string
		num  int
		prev string
		next string
	}{
		{"https://lnmtl.com/chapter/novel-chapter-123", 123, "https://lnmtl.com/chapter/novel-chapter-122", "https://lnmtl.com/chapter/novel-chapter-124"},
		{"https://example.com/book/c7", 7, "https://example.com/book/c6", "https://example.com/book/c8"},
		{"https://example.com/Chapter_1?x=y", 1, "", "https://example.com/Chapter_2?x=y"},
	}
	for _, tt := range tests {
		ch, ok := ParseChapterURL(tt.url)
		if !ok {
			t.Errorf("%s: not recognised", tt.url)
			continue
		}
		if ch.Number != tt.num || ch.Prev != tt.prev || ch.Next != tt.next {
			t.Errorf("%s: got %+v", tt.url, ch)
		}
	}

	if _, ok := ParseChapterURL("https://example.com/about"); ok {
		t.Error("url without chapter number should not parse")
	}
}
