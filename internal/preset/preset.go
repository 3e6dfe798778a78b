package preset

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset represents a parsed prompt preset file.
type Preset struct {
	Name        string // from frontmatter or file name
	Description string // from frontmatter
	Prompt      string // markdown body after frontmatter, used as the system prompt
	SourcePath  string // filesystem path or "embedded:<name>"
}

// frontmatter maps YAML frontmatter fields.
type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ParsePresetMD parses a preset markdown file into a Preset.
// Format: optional YAML frontmatter between "---" delimiters, then the prompt body.
func ParsePresetMD(data []byte, sourcePath string) (*Preset, error) {
	content := string(data)
	p := &Preset{
		SourcePath: sourcePath,
	}

	// Check for frontmatter
	trimmed := strings.TrimLeft(content, " \t\n\r")
	if strings.HasPrefix(trimmed, "---") {
		afterFirst := trimmed[3:]
		// Skip the rest of the first --- line
		idx := strings.Index(afterFirst, "\n")
		if idx < 0 {
			// Only frontmatter delimiter, no content
			p.Prompt = ""
		} else {
			afterFirst = afterFirst[idx+1:]

			// Find closing ---
			closingIdx := strings.Index(afterFirst, "\n---")
			if closingIdx < 0 {
				// No closing delimiter, treat entire content as prompt body
				p.Prompt = content
			} else {
				yamlBlock := afterFirst[:closingIdx]
				// Body starts after the closing --- line
				rest := afterFirst[closingIdx+4:]
				nlIdx := strings.Index(rest, "\n")
				if nlIdx >= 0 {
					p.Prompt = rest[nlIdx+1:]
				} else {
					p.Prompt = ""
				}

				var fm frontmatter
				if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
					return nil, fmt.Errorf("failed to parse preset frontmatter: %w", err)
				}

				p.Name = fm.Name
				p.Description = fm.Description
			}
		}
	} else {
		// No frontmatter
		p.Prompt = content
	}

	p.Prompt = strings.TrimSpace(p.Prompt)

	// Default name from file name
	if p.Name == "" {
		base := filepath.Base(sourcePath)
		p.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	// Default description from the first paragraph of the prompt
	if p.Description == "" && p.Prompt != "" {
		paragraphs := strings.SplitN(p.Prompt, "\n\n", 2)
		if len(paragraphs) > 0 {
			p.Description = strings.TrimSpace(paragraphs[0])
		}
	}

	return p, nil
}
