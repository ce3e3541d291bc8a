// Package ledger persists the single-slot record of the previous cycle's
// proposed orders and extracts order JSON from freeform generation output.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/minjae-dev/krx-advisor/internal/observ"
)

// ErrInvalidJSON marks a Store refused because the payload did not parse;
// the previous slot content is left untouched.
var ErrInvalidJSON = errors.New("proposed orders are not valid JSON")

// Store is the single-slot orders file. One JSON blob at a well-known path,
// read at the start of the Strategist stage and overwritten only at the end
// of a successful cycle.
type Store struct {
	path string
	log  zerolog.Logger
}

func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log.With().Str("component", "ledger").Logger()}
}

// Load returns the previous cycle's orders. An absent file is an empty list.
func (s *Store) Load() (string, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "[]", nil
	}
	if err != nil {
		return "", fmt.Errorf("read ledger: %w", err)
	}
	return string(b), nil
}

// Save validates and writes the new orders. The write is all-or-nothing:
// invalid JSON leaves the file byte-for-byte unchanged, and valid JSON is
// written to a temp file and renamed into place so a crash cannot leave a
// partial slot.
func (s *Store) Save(orders string) error {
	if !json.Valid([]byte(orders)) {
		observ.LedgerRejectsTotal.Inc()
		s.log.Warn().Str("head", head(orders, 50)).Msg("refusing ledger write, payload is not JSON")
		return ErrInvalidJSON
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ledger dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".orders-*.json")
	if err != nil {
		return fmt.Errorf("ledger temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(orders); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}

	s.log.Info().Str("path", s.path).Msg("orders saved")
	return nil
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
