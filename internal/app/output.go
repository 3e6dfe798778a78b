package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/fpt/parley-cli/pkg/llm"
)

// WriteSplashScreen writes the parley splash to w.
// When colored is true, uses ANSI color codes; otherwise plain text.
func WriteSplashScreen(w io.Writer, colored bool) {
	if w == nil {
		return
	}

	// Minimum left margin for readability when centering
	minLeftIndent := 2

	splash := `   ____________________
  /                    \
  |  ░ parley ░░░░░░░  |
  |  ░░░ chat ░░░░░░░  |
  \_______  ___________/
          \/`

	logoLines := []string{
		"PARLEY",
		"LLM chat for your terminal",
	}
	artLines := strings.Split(splash, "\n")

	maxLogoWidth := 0
	for _, l := range logoLines {
		if n := runeLen(l); n > maxLogoWidth {
			maxLogoWidth = n
		}
	}
	maxArtWidth := 0
	for _, l := range artLines {
		if n := runeLen(l); n > maxArtWidth {
			maxArtWidth = n
		}
	}

	// Determine terminal width (fallback to 80)
	termWidth := 80
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		termWidth = width
	}

	prefix, suffix := "", ""
	if colored {
		prefix = "\x1b[90m"
		suffix = "\x1b[0m"
	}

	gap := 2
	contentWidth := maxArtWidth + gap + maxLogoWidth
	if contentWidth > termWidth {
		// Narrow terminal: art only, left-aligned
		for _, l := range artLines {
			fmt.Fprintf(w, "%s%s%s%s\n", strings.Repeat(" ", minLeftIndent), prefix, l, suffix)
		}
		fmt.Fprintln(w)
		return
	}

	// Art on the left, logo vertically centered on the right
	leftIndent := minLeftIndent
	if pad := (termWidth - contentWidth) / 2; pad > leftIndent {
		leftIndent = pad
	}
	topPad := 0
	if len(artLines) > len(logoLines) {
		topPad = (len(artLines) - len(logoLines)) / 2
	}

	for i, art := range artLines {
		logo := ""
		if idx := i - topPad; idx >= 0 && idx < len(logoLines) {
			logo = logoLines[idx]
		}
		fmt.Fprintf(w, "%s%s%s%s%s%s\n",
			strings.Repeat(" ", leftIndent), prefix,
			padRight(art, maxArtWidth), strings.Repeat(" ", gap), logo, suffix)
	}
	fmt.Fprintln(w)
}

// WriteResponseHeader writes a standardized response header to w.
// When colored is true, prints in bright cyan; otherwise plain text.
func WriteResponseHeader(w io.Writer, model string, colored bool) {
	if w == nil {
		return
	}
	if colored {
		// Bright cyan (sky-blue like)
		fmt.Fprintf(w, "\x1b[36m%s (%s)\x1b[0m\n", "parley", model)
	} else {
		fmt.Fprintf(w, "%s (%s)\n", "parley", model)
	}
}

// FormatClientError renders a transport error with its classification code
// and an actionable hint for the common failure codes.
func FormatClientError(err error) string {
	code := llm.Classify(err)
	msg := fmt.Sprintf("error (code %d): %v", code, err)

	switch code {
	case 401:
		msg += "\n💡 Check your API key."
	case 429:
		msg += "\n💡 Rate limit reached, retry later or switch models."
	case llm.CodeNetwork:
		msg += "\n💡 Check your network connection."
	}
	return msg
}

// runeLen returns the number of runes in s.
func runeLen(s string) int { return utf8.RuneCountInString(s) }

// padRight pads s with spaces on the right to width runes.
func padRight(s string, width int) string {
	n := runeLen(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
