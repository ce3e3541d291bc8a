// Package report writes the per-cycle archival report and patches the
// process-wide status document.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Writer archives one report per cycle, keyed by the cycle timestamp. Reports
// are write-once and never read back by the pipeline.
type Writer struct {
	dir string
	log zerolog.Logger
}

func NewWriter(dir string, log zerolog.Logger) *Writer {
	return &Writer{dir: dir, log: log.With().Str("component", "report").Logger()}
}

// Write persists the cycle artifacts as reports/<YYYY-MM-DD_HH-MM>.md and
// returns the file name.
func (w *Writer) Write(cycleTS, analysis, orders, finalMessage string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("reports dir: %w", err)
	}

	name := strings.NewReplacer(" ", "_", ":", "-").Replace(cycleTS) + ".md"
	content := fmt.Sprintf(
		"# Trading Report — %s KST\n\n"+
			"## 1. Market Analysis\n%s\n\n"+
			"## 2. Proposed Orders (JSON)\n```json\n%s\n```\n\n"+
			"## 3. Risk Assessment & Message\n%s\n",
		cycleTS, analysis, orders, finalMessage,
	)

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	w.log.Info().Str("path", path).Msg("report saved")
	return name, nil
}
