package config

import (
	"fmt"
	"os"
	"strings"
)

// Credentials are sourced from the environment (a .env file is loaded by the
// entry points before this runs). A missing required credential is fatal at
// process start, before the scheduler loop begins.
type Credentials struct {
	GeminiAPIKey   string
	TelegramToken  string
	TelegramChatID string
	KISAppKey      string
	KISAppSecret   string
	KISAccountNo   string
	KISMode        string // "live" | "simulation"
}

// LoadCredentials reads and validates the recognized environment keys.
func LoadCredentials() (Credentials, error) {
	c := Credentials{
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),
		KISAppKey:      os.Getenv("KIS_APP_KEY"),
		KISAppSecret:   os.Getenv("KIS_APP_SECRET"),
		KISAccountNo:   os.Getenv("KIS_ACCOUNT_NO"),
		KISMode:        strings.ToLower(os.Getenv("KIS_MODE")),
	}
	if c.KISMode == "" {
		c.KISMode = "simulation"
	}

	var missing []string
	for _, kv := range []struct{ key, val string }{
		{"GEMINI_API_KEY", c.GeminiAPIKey},
		{"TELEGRAM_TOKEN", c.TelegramToken},
		{"TELEGRAM_CHAT_ID", c.TelegramChatID},
		{"KIS_APP_KEY", c.KISAppKey},
		{"KIS_APP_SECRET", c.KISAppSecret},
	} {
		if kv.val == "" {
			missing = append(missing, kv.key)
		}
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("missing required environment keys: %s", strings.Join(missing, ", "))
	}
	if c.KISMode != "live" && c.KISMode != "simulation" {
		return c, fmt.Errorf("KIS_MODE must be \"live\" or \"simulation\", got %q", c.KISMode)
	}
	return c, nil
}
