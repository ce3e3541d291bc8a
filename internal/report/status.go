package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Document is a parsed status document: an ordered list of sections split on
// `##` headings, with named `**Field:** value` lines addressable in place.
// Patching the parsed model instead of the raw text is what makes the status
// update idempotent.
type Document struct {
	sections []*section
}

type section struct {
	heading string // full heading line, empty for the preamble
	lines   []string
}

// ParseDocument splits raw markdown into sections.
func ParseDocument(raw string) *Document {
	doc := &Document{sections: []*section{{}}}
	cur := doc.sections[0]
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, "## ") {
			cur = &section{heading: line}
			doc.sections = append(doc.sections, cur)
			continue
		}
		cur.lines = append(cur.lines, line)
	}
	return doc
}

// SetField rewrites the first `**name:** ...` line anywhere in the document.
// Reports whether the field existed.
func (d *Document) SetField(name, value string) bool {
	marker := "**" + name + ":**"
	for _, sec := range d.sections {
		for i, line := range sec.lines {
			if strings.HasPrefix(strings.TrimSpace(line), marker) {
				sec.lines[i] = marker + " " + value
				return true
			}
		}
	}
	return false
}

// AddAccomplishment inserts entry at the top of the accomplishments section
// unless a line for key is already present. Applying the same (key, entry)
// twice yields exactly one line.
func (d *Document) AddAccomplishment(key, entry string) bool {
	for _, sec := range d.sections {
		if !strings.Contains(sec.heading, "Recent Accomplishments") {
			continue
		}
		for _, line := range sec.lines {
			if strings.Contains(line, key) {
				return false
			}
		}
		sec.lines = append([]string{entry}, sec.lines...)
		return true
	}
	return false
}

// Render reassembles the document.
func (d *Document) Render() string {
	var b strings.Builder
	for i, sec := range d.sections {
		if sec.heading != "" {
			b.WriteString(sec.heading)
			b.WriteString("\n")
		}
		for j, line := range sec.lines {
			b.WriteString(line)
			if j < len(sec.lines)-1 || i < len(d.sections)-1 {
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

const statusSkeleton = `# Global State

**Date:** never
**Last Actor:** none

## Recent Accomplishments
`

// Status patches the process-wide status document after a successful cycle.
type Status struct {
	path string
	log  zerolog.Logger
}

func NewStatus(path string, log zerolog.Logger) *Status {
	return &Status{path: path, log: log.With().Str("component", "status").Logger()}
}

// Patch updates the latest-cycle fields and appends one accomplishment line
// for cycleTS. A missing document is created from a skeleton so the first
// cycle behaves like every later one.
func (s *Status) Patch(cycleTS, actor, reportName string) error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.log.Warn().Str("path", s.path).Msg("status document missing, creating skeleton")
		raw = []byte(statusSkeleton)
	} else if err != nil {
		return fmt.Errorf("read status document: %w", err)
	}

	doc := ParseDocument(string(raw))
	doc.SetField("Date", cycleTS)
	doc.SetField("Last Actor", actor)

	key := "**" + cycleTS
	entry := fmt.Sprintf("- [x] **%s Auto-Trading Report** → `reports/%s`", cycleTS, reportName)
	doc.AddAccomplishment(key, entry)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("status dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(doc.Render()), 0o644); err != nil {
		return fmt.Errorf("write status document: %w", err)
	}
	s.log.Info().Str("path", s.path).Msg("status document updated")
	return nil
}
