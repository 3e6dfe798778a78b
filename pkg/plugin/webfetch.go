package plugin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/fpt/parley-cli/pkg/message"
)

// Tuning constants for page text extraction.
const (
	fetchTimeout     = 30 * time.Second
	minLineLength    = 40
	maxFetchedChars  = 8000
	fetchCommandName = "/fetch"
)

// nonContentSelector matches elements that never contain readable content.
const nonContentSelector = "script, style, noscript, svg, iframe, nav, header, footer, aside"

// WebFetchPlugin handles "/fetch <url>" by extracting the readable text of
// the page and rendering it to the session output. Handled messages never
// reach the model.
type WebFetchPlugin struct {
	httpClient *http.Client
	out        io.Writer
}

// NewWebFetchPlugin creates a webfetch plugin writing extracted pages to out.
func NewWebFetchPlugin(out io.Writer) *WebFetchPlugin {
	return &WebFetchPlugin{
		httpClient: &http.Client{Timeout: fetchTimeout},
		out:        out,
	}
}

// Name returns the plugin identifier.
func (p *WebFetchPlugin) Name() string { return "webfetch" }

// Description returns a short summary.
func (p *WebFetchPlugin) Description() string {
	return "Fetches a web page with /fetch <url> and shows its readable text"
}

// OnUserMessage consumes /fetch commands. The command is considered handled
// even when the fetch fails; the failure is rendered instead of the page so
// the raw command never goes to the model.
func (p *WebFetchPlugin) OnUserMessage(ctx context.Context, text string) (bool, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed != fetchCommandName && !strings.HasPrefix(trimmed, fetchCommandName+" ") {
		return false, nil
	}

	target := strings.TrimSpace(strings.TrimPrefix(trimmed, fetchCommandName))
	if target == "" {
		fmt.Fprintln(p.out, "Usage: /fetch <url>")
		return true, nil
	}

	page, err := p.fetchReadableText(ctx, target)
	if err != nil {
		fmt.Fprintf(p.out, "Fetch failed: %v\n", err)
		return true, nil
	}

	fmt.Fprint(p.out, page)
	return true, nil
}

// OnResponse ignores assistant responses.
func (p *WebFetchPlugin) OnResponse(ctx context.Context, msg *message.ChatMessage) error {
	return nil
}

// fetchReadableText downloads a page and reduces it to title plus dense
// text lines.
func (p *WebFetchPlugin) fetchReadableText(ctx context.Context, urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", errors.Wrap(err, "invalid URL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", errors.New("invalid URL scheme: must be http or https")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Compatible Web Fetcher Bot)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch page")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("HTTP error %d: %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse HTML")
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	body := extractReadableText(doc)

	var b strings.Builder
	if title != "" {
		b.WriteString(fmt.Sprintf("# %s\n", title))
	}
	b.WriteString(fmt.Sprintf("URL: %s\n\n", urlStr))
	if body == "" {
		b.WriteString("No readable content found.\n")
	} else {
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// extractReadableText removes non-content elements and collects the text of
// headings, paragraphs, list items and preformatted blocks. Short fragments
// (menu entries, button labels) are dropped; headings are always kept.
func extractReadableText(doc *goquery.Document) string {
	doc.Find(nonContentSelector).Remove()

	var lines []string
	total := 0
	collected := make(map[*html.Node]bool)
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		if total >= maxFetchedChars {
			return
		}

		// A p inside a blockquote or a nested li is already part of its
		// ancestor's text.
		node := s.Get(0)
		if hasCollectedAncestor(node, collected) {
			return
		}

		text := collapseWhitespace(strings.TrimSpace(s.Text()))
		if text == "" {
			return
		}

		tag := goquery.NodeName(s)
		isHeading := strings.HasPrefix(tag, "h")
		if !isHeading && len(text) < minLineLength {
			return
		}
		if isHeading {
			text = "## " + text
		}

		collected[node] = true
		lines = append(lines, text)
		total += len(text)
	})

	result := strings.Join(lines, "\n\n")
	if len(result) > maxFetchedChars {
		result = result[:maxFetchedChars] + "\n... (truncated)"
	}
	return result
}

func hasCollectedAncestor(node *html.Node, collected map[*html.Node]bool) bool {
	for n := node.Parent; n != nil; n = n.Parent {
		if collected[n] {
			return true
		}
	}
	return false
}

// collapseWhitespace replaces runs of whitespace (including newlines) with a
// single space.
func collapseWhitespace(s string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !inSpace {
				b.WriteRune(' ')
				inSpace = true
			}
		} else {
			b.WriteRune(r)
			inSpace = false
		}
	}
	return b.String()
}
