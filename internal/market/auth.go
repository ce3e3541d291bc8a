package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	liveBaseURL       = "https://openapi.koreainvestment.com:9443"
	simulationBaseURL = "https://openapivts.koreainvestment.com:29443"

	// Brokerage tokens report expiry as KST civil time in this layout.
	tokenExpiryLayout = "2006-01-02 15:04:05"
)

// Auth manages the brokerage OAuth2 client-credentials token lifecycle.
// Tokens are cached and refreshed when missing or within ten minutes of
// expiry, so one token normally serves many hourly cycles.
type Auth struct {
	appKey    string
	appSecret string
	baseURL   string
	loc       *time.Location
	client    *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// AuthConfig carries the credential material and deployment mode.
type AuthConfig struct {
	AppKey    string
	AppSecret string
	Mode      string         // "live" | "simulation"
	BaseURL   string         // overrides mode-derived URL; used by tests
	Location  *time.Location // zone of expiry timestamps; nil means KST
	Timeout   time.Duration
}

func NewAuth(cfg AuthConfig) *Auth {
	base := cfg.BaseURL
	if base == "" {
		if cfg.Mode == "live" {
			base = liveBaseURL
		} else {
			base = simulationBaseURL
		}
	}
	loc := cfg.Location
	if loc == nil {
		// Korea has no DST, so a fixed offset is exact.
		loc = time.FixedZone("KST", 9*60*60)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Auth{
		appKey:    cfg.AppKey,
		appSecret: cfg.AppSecret,
		baseURL:   base,
		loc:       loc,
		client:    &http.Client{Timeout: timeout},
	}
}

// BaseURL is the mode-selected API endpoint.
func (a *Auth) BaseURL() string { return a.baseURL }

// Token returns a valid access token, requesting a fresh one when needed.
func (a *Auth) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Until(a.expires) > 10*time.Minute {
		return a.token, nil
	}
	return a.refreshLocked(ctx)
}

// Refresh forces a new token request, ignoring any cached token.
func (a *Auth) Refresh(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshLocked(ctx)
}

func (a *Auth) refreshLocked(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     a.appKey,
		"appsecret":  a.appSecret,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/oauth2/tokenP", bytes.NewReader(body))
	if err != nil {
		return "", NewAuthError("build token request", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", NewAuthError("token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", NewAuthError(fmt.Sprintf("token endpoint returned %d", resp.StatusCode), nil)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		Expired     string `json:"access_token_token_expired"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", NewAuthError("parse token response", err)
	}
	if tok.AccessToken == "" {
		return "", NewAuthError("empty access token", nil)
	}

	a.token = tok.AccessToken
	if exp, err := time.ParseInLocation(tokenExpiryLayout, tok.Expired, a.loc); err == nil {
		a.expires = exp
	} else {
		// Expiry unparsable: assume the documented 24h lifetime, minus slack.
		a.expires = time.Now().Add(23 * time.Hour)
	}
	return a.token, nil
}

// Expiry reports when the cached token lapses; zero when no token is held.
func (a *Auth) Expiry() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.expires
}

// header builds the standard authenticated header set for a data call.
// trID identifies the requested data product.
func (a *Auth) header(ctx context.Context, trID string) (http.Header, error) {
	token, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("content-type", "application/json")
	h.Set("authorization", "Bearer "+token)
	h.Set("appkey", a.appKey)
	h.Set("appsecret", a.appSecret)
	h.Set("tr_id", trID)
	return h, nil
}
