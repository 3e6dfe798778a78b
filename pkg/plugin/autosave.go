package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	pkgLogger "github.com/fpt/parley-cli/pkg/logger"
	"github.com/fpt/parley-cli/pkg/message"
)

// extensionForLanguage maps fence language tags to file extensions.
// Unknown tags fall back to .txt.
var extensionForLanguage = map[string]string{
	"python":     "py",
	"py":         "py",
	"go":         "go",
	"golang":     "go",
	"javascript": "js",
	"js":         "js",
	"typescript": "ts",
	"ts":         "ts",
	"rust":       "rs",
	"c":          "c",
	"cpp":        "cpp",
	"java":       "java",
	"ruby":       "rb",
	"sh":         "sh",
	"bash":       "sh",
	"sql":        "sql",
	"html":       "html",
	"css":        "css",
	"json":       "json",
	"yaml":       "yaml",
	"toml":       "toml",
}

// codeBlock is one fenced block lifted out of a response.
type codeBlock struct {
	language string
	body     string
}

// AutosavePlugin writes fenced code blocks from finalized assistant
// responses to timestamped files under a configured directory.
type AutosavePlugin struct {
	dir string
	now func() time.Time
}

// NewAutosavePlugin creates an autosave plugin targeting dir. The directory
// is created on first save.
func NewAutosavePlugin(dir string) *AutosavePlugin {
	return &AutosavePlugin{dir: dir, now: time.Now}
}

// Name returns the plugin identifier.
func (p *AutosavePlugin) Name() string { return "autosave" }

// Description returns a short summary.
func (p *AutosavePlugin) Description() string {
	return "Saves fenced code blocks from responses to " + p.dir
}

// OnUserMessage never handles user input.
func (p *AutosavePlugin) OnUserMessage(ctx context.Context, text string) (bool, error) {
	return false, nil
}

// OnResponse extracts every fenced code block that carries a language tag
// and writes each to its own file named code_<timestamp>[_n].<ext>.
func (p *AutosavePlugin) OnResponse(ctx context.Context, msg *message.ChatMessage) error {
	blocks := extractCodeBlocks(msg.Content())
	if len(blocks) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create autosave directory %s", p.dir)
	}

	timestamp := p.now().Format("20060102_150405")
	for i, block := range blocks {
		ext, ok := extensionForLanguage[block.language]
		if !ok {
			ext = "txt"
		}

		name := fmt.Sprintf("code_%s.%s", timestamp, ext)
		if i > 0 {
			name = fmt.Sprintf("code_%s_%d.%s", timestamp, i+1, ext)
		}
		path := filepath.Join(p.dir, name)

		if err := os.WriteFile(path, []byte(block.body+"\n"), 0644); err != nil {
			return errors.Wrapf(err, "failed to save code block to %s", path)
		}
		logger.InfoWithIntention(pkgLogger.IntentionSuccess, "Saved code block", "path", path, "language", block.language)
	}
	return nil
}

// extractCodeBlocks returns the fenced blocks of content that declare a
// language. Unterminated fences and plain ``` fences are skipped.
func extractCodeBlocks(content string) []codeBlock {
	var blocks []codeBlock

	rest := content
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			break
		}
		rest = rest[start+3:]

		newline := strings.Index(rest, "\n")
		if newline < 0 {
			break
		}
		language := strings.ToLower(strings.TrimSpace(rest[:newline]))
		rest = rest[newline+1:]

		end := strings.Index(rest, "```")
		if end < 0 {
			break
		}
		body := strings.TrimRight(rest[:end], "\n")
		rest = rest[end+3:]

		if language == "" || body == "" {
			continue
		}
		blocks = append(blocks, codeBlock{language: language, body: body})
	}
	return blocks
}
