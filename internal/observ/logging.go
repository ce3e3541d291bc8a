package observ

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger: human-readable console output plus a
// daily JSON log file under logsDir (bot_YYYY-MM-DD.log). An empty logsDir
// disables the file sink; a failing one degrades to console only.
func NewLogger(level, logsDir string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}

	writers := []io.Writer{console}
	if logsDir != "" {
		if f, ferr := openDailyLog(logsDir); ferr == nil {
			writers = append(writers, f)
		} else {
			fmt.Fprintf(os.Stderr, "log file unavailable: %v\n", ferr)
		}
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().Timestamp().Logger().Level(lvl)
}

func openDailyLog(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("bot_%s.log", time.Now().Format("2006-01-02"))
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
