package plugin

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func docFromHTML(t *testing.T, raw string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

const fetchTestPage = `<html>
<head><title>Release Notes</title><script>var tracker = "spy";</script></head>
<body>
<nav><a href="/">Home</a><a href="/docs">Docs</a></nav>
<article>
<h1>Version 2.0</h1>
<p>This release reworks the streaming pipeline and fixes several long-standing budgeting bugs.</p>
<p>Upgrading requires no configuration changes; existing session files load unchanged.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func TestWebFetchHandlesCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(fetchTestPage)); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	var out bytes.Buffer
	p := NewWebFetchPlugin(&out)

	handled, err := p.OnUserMessage(context.Background(), "/fetch "+server.URL)
	if err != nil {
		t.Fatalf("OnUserMessage failed: %v", err)
	}
	if !handled {
		t.Fatal("expected /fetch to be handled")
	}

	rendered := out.String()
	if !strings.Contains(rendered, "# Release Notes") {
		t.Errorf("expected the page title, got:\n%s", rendered)
	}
	if !strings.Contains(rendered, "## Version 2.0") {
		t.Errorf("expected the heading, got:\n%s", rendered)
	}
	if !strings.Contains(rendered, "reworks the streaming pipeline") {
		t.Errorf("expected paragraph text, got:\n%s", rendered)
	}
	if strings.Contains(rendered, "spy") {
		t.Error("expected script content to be stripped")
	}
}

func TestWebFetchIgnoresOrdinaryMessages(t *testing.T) {
	var out bytes.Buffer
	p := NewWebFetchPlugin(&out)

	for _, text := range []string{"hello", "fetch me a coffee", "/fetched"} {
		handled, err := p.OnUserMessage(context.Background(), text)
		if err != nil {
			t.Fatal(err)
		}
		if handled {
			t.Errorf("expected %q to pass through", text)
		}
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

func TestWebFetchMissingURL(t *testing.T) {
	var out bytes.Buffer
	p := NewWebFetchPlugin(&out)

	handled, err := p.OnUserMessage(context.Background(), "/fetch")
	if err != nil {
		t.Fatal(err)
	}
	if !handled {
		t.Error("expected a bare /fetch to be consumed")
	}
	if !strings.Contains(out.String(), "Usage: /fetch <url>") {
		t.Errorf("expected a usage hint, got %q", out.String())
	}
}

func TestWebFetchRendersFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	var out bytes.Buffer
	p := NewWebFetchPlugin(&out)

	// A failed fetch still consumes the command; the raw /fetch line must
	// never be sent to the model.
	handled, err := p.OnUserMessage(context.Background(), "/fetch "+server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !handled {
		t.Error("expected the failed fetch to be handled")
	}
	if !strings.Contains(out.String(), "Fetch failed") {
		t.Errorf("expected a failure line, got %q", out.String())
	}
	if !strings.Contains(out.String(), "404") {
		t.Errorf("expected the HTTP status in the failure line, got %q", out.String())
	}
}

func TestWebFetchRejectsNonHTTPSchemes(t *testing.T) {
	var out bytes.Buffer
	p := NewWebFetchPlugin(&out)

	handled, err := p.OnUserMessage(context.Background(), "/fetch file:///etc/passwd")
	if err != nil {
		t.Fatal(err)
	}
	if !handled {
		t.Error("expected the command to be consumed")
	}
	if !strings.Contains(out.String(), "invalid URL scheme") {
		t.Errorf("expected a scheme rejection, got %q", out.String())
	}
}

func TestExtractReadableText(t *testing.T) {
	doc := docFromHTML(t, `<html><body>
<nav><a href="/">Home</a></nav>
<p>`+strings.Repeat("Readable sentence with enough length to keep. ", 3)+`</p>
<p>short</p>
<h2>Heading kept despite length</h2>
</body></html>`)

	text := extractReadableText(doc)
	if !strings.Contains(text, "Readable sentence") {
		t.Error("expected the long paragraph to be kept")
	}
	if strings.Contains(text, "short") {
		t.Error("expected the short fragment to be dropped")
	}
	if !strings.Contains(text, "## Heading kept despite length") {
		t.Error("expected headings to be kept regardless of length")
	}
	if strings.Contains(text, "Home") {
		t.Error("expected nav content to be removed")
	}
}

func TestExtractReadableTextNestedBlocksOnce(t *testing.T) {
	long := strings.Repeat("A quoted sentence that easily clears the length cutoff. ", 3)
	doc := docFromHTML(t, `<html><body>
<blockquote><p>`+long+`</p></blockquote>
</body></html>`)

	text := extractReadableText(doc)
	if got := strings.Count(text, "A quoted sentence"); got != 3 {
		t.Errorf("expected the nested paragraph once (3 sentences), found %d occurrences", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	input := "hello\n\n  world\t\tfoo"
	got := collapseWhitespace(input)
	if got != "hello world foo" {
		t.Errorf("collapseWhitespace = %q, want %q", got, "hello world foo")
	}
}
