// Package notify delivers cycle results and failure alerts to a human over
// Telegram. Delivery is fire-and-forget: one attempt, short timeout, failures
// logged and counted but never escalated.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/minjae-dev/krx-advisor/internal/observ"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// AlertPrefix marks failure alerts so a human can filter them from ordinary
// cycle reports at a glance.
const AlertPrefix = "⚠️ [ALERT] "

type Telegram struct {
	token  string
	chatID string
	base   string
	client *http.Client
	log    zerolog.Logger
}

type TelegramConfig struct {
	Token   string
	ChatID  string
	BaseURL string // overridden in tests
	Timeout time.Duration
}

func NewTelegram(cfg TelegramConfig, log zerolog.Logger) *Telegram {
	base := cfg.BaseURL
	if base == "" {
		base = defaultTelegramBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Telegram{
		token:  cfg.Token,
		chatID: cfg.ChatID,
		base:   base,
		client: &http.Client{Timeout: timeout},
		log:    log.With().Str("component", "notify").Logger(),
	}
}

// Send pushes one message. The returned error is informational; callers must
// not retry on it.
func (t *Telegram) Send(ctx context.Context, text string) error {
	payload, _ := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return t.fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("content-type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return t.fail(fmt.Errorf("send: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return t.fail(fmt.Errorf("telegram returned %d: %s", resp.StatusCode, body))
	}

	t.log.Info().Msg("telegram message delivered")
	return nil
}

// Alert sends a failure notification with the distinct alert prefix.
func (t *Telegram) Alert(ctx context.Context, text string) error {
	return t.Send(ctx, AlertPrefix+text)
}

func (t *Telegram) fail(err error) error {
	observ.NotifyErrorsTotal.Inc()
	t.log.Error().Err(err).Msg("telegram delivery failed")
	return err
}
