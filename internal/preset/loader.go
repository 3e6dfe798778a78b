package preset

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed prompts/*.md
var embeddedPresets embed.FS

// PresetMap maps preset name (lowercase) to *Preset.
type PresetMap map[string]*Preset

// LoadPresets loads presets from the built-in set, then overlays *.md files
// found in dir. A preset file with the same name as a built-in replaces it.
// A missing or empty directory leaves the built-ins in place.
func LoadPresets(dir string) (PresetMap, error) {
	result := make(PresetMap)

	builtins, err := LoadBuiltinPresets()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in presets: %w", err)
	}
	for name, p := range builtins {
		result[name] = p
	}

	if dir == "" {
		return result, nil
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return result, nil
	}

	loaded, err := LoadPresetsFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load presets from %s: %w", dir, err)
	}
	for name, p := range loaded {
		result[name] = p
	}

	return result, nil
}

// LoadPresetsFromDir loads preset files from a directory.
// Every *.md file is treated as one preset.
func LoadPresetsFromDir(dir string) (PresetMap, error) {
	result := make(PresetMap)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		presetFile := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(presetFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read preset %s: %w", presetFile, err)
		}

		p, err := ParsePresetMD(data, presetFile)
		if err != nil {
			return nil, fmt.Errorf("failed to parse preset %s: %w", presetFile, err)
		}

		key := strings.ToLower(p.Name)
		result[key] = p
	}

	return result, nil
}

// LoadBuiltinPresets loads embedded presets from the embed.FS.
func LoadBuiltinPresets() (PresetMap, error) {
	result := make(PresetMap)

	err := fs.WalkDir(embeddedPresets, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		data, err := embeddedPresets.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded preset %s: %w", path, err)
		}

		p, err := ParsePresetMD(data, "embedded:"+path)
		if err != nil {
			return fmt.Errorf("failed to parse embedded preset %s: %w", path, err)
		}

		key := strings.ToLower(p.Name)
		result[key] = p
		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// Names returns preset names in sorted order for display.
func (m PresetMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
