package preset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBuiltinPresets(t *testing.T) {
	presets, err := LoadBuiltinPresets()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"default", "none", "coding"} {
		if _, ok := presets[name]; !ok {
			t.Errorf("expected built-in preset %q", name)
		}
	}

	if presets["default"].Prompt != "You are a helpful assistant." {
		t.Errorf("unexpected default prompt: %q", presets["default"].Prompt)
	}
	if presets["none"].Prompt != "" {
		t.Errorf("expected empty prompt for 'none', got %q", presets["none"].Prompt)
	}
}

func TestLoadPresets_MissingDirKeepsBuiltins(t *testing.T) {
	presets, err := LoadPresets(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := presets["default"]; !ok {
		t.Error("expected built-ins when directory is missing")
	}
}

func TestLoadPresets_DirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()

	override := `---
name: default
description: My own default
---

You are a pirate.
`
	if err := os.WriteFile(filepath.Join(dir, "default.md"), []byte(override), 0644); err != nil {
		t.Fatalf("failed to write preset file: %v", err)
	}
	extra := `---
name: translator
description: Translates into English
---

Translate every message into English.
`
	if err := os.WriteFile(filepath.Join(dir, "translator.md"), []byte(extra), 0644); err != nil {
		t.Fatalf("failed to write preset file: %v", err)
	}

	presets, err := LoadPresets(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if presets["default"].Prompt != "You are a pirate." {
		t.Errorf("expected directory preset to override built-in, got %q", presets["default"].Prompt)
	}
	if _, ok := presets["translator"]; !ok {
		t.Error("expected new preset from directory")
	}
	if _, ok := presets["coding"]; !ok {
		t.Error("expected untouched built-in to survive")
	}
}

func TestLoadPresetsFromDir_IgnoresNonMarkdown(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a preset"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	presets, err := LoadPresetsFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(presets) != 0 {
		t.Errorf("expected no presets, got %d", len(presets))
	}
}

func TestPresetMapNames(t *testing.T) {
	m := PresetMap{
		"zeta":  &Preset{Name: "zeta"},
		"alpha": &Preset{Name: "alpha"},
		"mid":   &Preset{Name: "mid"},
	}

	names := m.Names()
	if len(names) != 3 {
		t.Fatalf("expected 3 names, got %d", len(names))
	}
	if names[0] != "alpha" || names[1] != "mid" || names[2] != "zeta" {
		t.Errorf("expected sorted names, got %v", names)
	}
}
