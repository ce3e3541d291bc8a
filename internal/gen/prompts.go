package gen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadPrompt reads <dir>/<name>/SKILL.md and returns the system prompt: the
// markdown body with the YAML frontmatter block stripped. Files without a
// frontmatter block are returned whole.
func LoadPrompt(dir, name string) (string, error) {
	path := filepath.Join(dir, name, "SKILL.md")
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("skill prompt %s: %w", name, err)
	}
	parts := strings.SplitN(string(raw), "---", 3)
	if len(parts) >= 3 {
		return strings.TrimSpace(parts[2]), nil
	}
	return strings.TrimSpace(string(raw)), nil
}
