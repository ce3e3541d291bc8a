package gen

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSkill(t *testing.T, dir, name, content string) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadPrompt_StripsFrontmatter(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "market-analyst", "---\nname: market-analyst\nversion: 1.0.0\n---\n\n# SYSTEM PROMPT\nYou are an analyst.\n")

	got, err := LoadPrompt(dir, "market-analyst")
	if err != nil {
		t.Fatalf("LoadPrompt: %v", err)
	}
	want := "# SYSTEM PROMPT\nYou are an analyst."
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestLoadPrompt_NoFrontmatter(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "risk-officer", "Just the prompt body.\n")

	got, err := LoadPrompt(dir, "risk-officer")
	if err != nil {
		t.Fatalf("LoadPrompt: %v", err)
	}
	if got != "Just the prompt body." {
		t.Fatalf("got %q", got)
	}
}

func TestLoadPrompt_Missing(t *testing.T) {
	if _, err := LoadPrompt(t.TempDir(), "no-such-skill"); err == nil {
		t.Fatal("want error for missing skill, got nil")
	}
}
