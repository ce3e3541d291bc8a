// Package gen drives the text-generation stages: a Gemini REST client, the
// retry policy wrapping it, and the skill-prompt file loader.
package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// Generator is the prompt-in/text-out backend boundary. augmented asks the
// backend to ground the answer in live web retrieval; it changes only the
// request shape.
type Generator interface {
	Generate(ctx context.Context, system, user string, augmented bool) (string, error)
}

// GeminiClient calls the generateContent REST endpoint.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // overridden in tests
	Timeout time.Duration
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	base := cfg.BaseURL
	if base == "" {
		base = defaultGeminiBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"system_instruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	Tools             []map[string]any `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate performs one generation call. An empty result is returned as
// ("", nil); deciding what to do with empty output is the runner's job.
func (g *GeminiClient) Generate(ctx context.Context, system, user string, augmented bool) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: user}}}},
	}
	if system != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	if augmented {
		reqBody.Tools = []map[string]any{{"google_search": map[string]any{}}}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("generation backend error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation backend returned %d", resp.StatusCode)
	}

	var b strings.Builder
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			b.WriteString(part.Text)
		}
		break // first candidate only
	}
	return b.String(), nil
}
