// Package market aggregates index, FX and investor-flow data from the
// brokerage OpenAPI, tolerating partial backend failure.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/minjae-dev/krx-advisor/internal/config"
	"github.com/minjae-dev/krx-advisor/internal/observ"
)

const (
	trIDIndexSnapshot = "FHKST01010400"
	trIDInvestorFlow  = "FHKST01010900"
	trIDFXChart       = "FHKST03030100"
)

// Collector fetches all market inputs for one cycle. Every sub-fetch is
// independently guarded: Collect never fails, it records per-field error
// markers instead.
type Collector struct {
	auth    *Auth
	cfg     config.Market
	client  *http.Client
	limiter *rate.Limiter
	loc     *time.Location
	log     zerolog.Logger
}

func NewCollector(auth *Auth, cfg config.Market, loc *time.Location, log zerolog.Logger) *Collector {
	pause := time.Duration(cfg.RequestPauseMs) * time.Millisecond
	return &Collector{
		auth:    auth,
		cfg:     cfg,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		limiter: rate.NewLimiter(rate.Every(pause), 1),
		loc:     loc,
		log:     log.With().Str("component", "market").Logger(),
	}
}

// Collect builds the cycle snapshot. One backend's failure never blocks the
// others; the FX rate is a soft field and may be absent.
func (c *Collector) Collect(ctx context.Context) Snapshot {
	snap := Snapshot{
		Indices:   make(map[string]IndexQuote, len(c.cfg.Indices)),
		Investors: make(map[string]json.RawMessage, 1),
	}

	for _, idx := range c.cfg.Indices {
		quote, err := c.FetchIndex(ctx, idx.Code)
		if err != nil {
			c.log.Error().Err(err).Str("index", idx.Name).Msg("index fetch failed")
			observ.MarketFetchErrorsTotal.WithLabelValues("index").Inc()
			snap.Indices[idx.Name] = IndexQuote{Err: err.Error()}
			continue
		}
		snap.Indices[idx.Name] = quote
	}

	if fx, err := c.FetchExchangeRate(ctx); err != nil {
		c.log.Error().Err(err).Msg("exchange rate unavailable")
		observ.MarketFetchErrorsTotal.WithLabelValues("fx").Inc()
	} else {
		snap.ExchangeRate = &fx
	}

	name := c.investorIndexName()
	if flow, err := c.FetchInvestorFlow(ctx, c.cfg.InvestorIndex); err != nil {
		c.log.Error().Err(err).Msg("investor flow fetch failed")
		observ.MarketFetchErrorsTotal.WithLabelValues("investors").Inc()
		marker, _ := json.Marshal(map[string]string{"error": err.Error()})
		snap.Investors[name] = marker
	} else {
		snap.Investors[name] = flow
	}

	snap.Timestamp = time.Now().In(c.loc).Format("2006-01-02 15:04:05")
	c.log.Info().Str("ts", snap.Timestamp).Msg("market snapshot collected")
	return snap
}

// FetchIndex returns the current level and day change for one index code.
func (c *Collector) FetchIndex(ctx context.Context, code string) (IndexQuote, error) {
	op := "index " + code
	body, err := c.get(ctx, "/uapi/domestic-stock/v1/quotations/inquire-daily-index-chartprice",
		trIDIndexSnapshot, url.Values{
			"FID_COND_MRKT_DIV_CODE": {"J"},
			"FID_INPUT_ISCD":         {code},
			"FID_PERIOD_DIV_CODE":    {"D"},
			"FID_ORG_ADJ_PRC":        {"0"},
		})
	if err != nil {
		return IndexQuote{}, err
	}

	var resp struct {
		RtCd    string          `json:"rt_cd"`
		Msg1    string          `json:"msg1"`
		Output1 json.RawMessage `json:"output1"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return IndexQuote{}, NewProviderError(op, "unparsable response")
	}
	if resp.RtCd != "0" {
		return IndexQuote{}, NewProviderError(op, providerMessage(resp.Msg1))
	}

	fields := firstObject(resp.Output1)
	if fields == nil {
		return IndexQuote{}, NewProviderError(op, "no quote payload")
	}

	quote := IndexQuote{
		Price:  pick(fields, "bstp_nmiv_prpr", "stck_prpr"),
		Change: pick(fields, "bstp_nmiv_prdy_ctrt", "prdy_ctrt"),
	}
	if quote.Price == "" {
		return IndexQuote{}, NewProviderError(op, "quote payload missing price")
	}
	return quote, nil
}

// FetchInvestorFlow returns the raw per-investor net purchase rows for one
// index. The payload structure is backend-defined and passed through opaquely
// for the Analyst to interpret.
func (c *Collector) FetchInvestorFlow(ctx context.Context, code string) (json.RawMessage, error) {
	op := "investors " + code
	body, err := c.get(ctx, "/uapi/domestic-stock/v1/quotations/inquire-investor",
		trIDInvestorFlow, url.Values{
			"FID_COND_MRKT_DIV_CODE": {"J"},
			"FID_INPUT_ISCD":         {code},
		})
	if err != nil {
		return nil, err
	}

	var resp struct {
		RtCd   string          `json:"rt_cd"`
		Msg1   string          `json:"msg1"`
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewProviderError(op, "unparsable response")
	}
	if resp.RtCd != "0" {
		return nil, NewProviderError(op, providerMessage(resp.Msg1))
	}
	if len(resp.Output) == 0 {
		return nil, NewProviderError(op, "empty output")
	}
	return resp.Output, nil
}

// FetchExchangeRate returns USD/KRW, preferring the brokerage FX chart and
// falling back to the public source on any failure.
func (c *Collector) FetchExchangeRate(ctx context.Context) (float64, error) {
	if fx, err := c.fetchBrokerageFX(ctx); err == nil {
		return fx, nil
	} else {
		c.log.Warn().Err(err).Msg("brokerage FX failed, trying fallback source")
	}
	return c.fetchFallbackFX(ctx)
}

func (c *Collector) fetchBrokerageFX(ctx context.Context) (float64, error) {
	today := time.Now().In(c.loc).Format("20060102")
	body, err := c.get(ctx, "/uapi/overseas-price/v1/quotations/inquire-daily-chartprice",
		trIDFXChart, url.Values{
			"FID_COND_MRKT_DIV_CODE": {"X"},
			"FID_INPUT_ISCD":         {"FX@KRW"},
			"FID_INPUT_DATE_1":       {today},
			"FID_INPUT_DATE_2":       {today},
			"FID_PERIOD_DIV_CODE":    {"D"},
		})
	if err != nil {
		return 0, err
	}

	var resp struct {
		RtCd    string          `json:"rt_cd"`
		Msg1    string          `json:"msg1"`
		Output1 json.RawMessage `json:"output1"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, NewProviderError("fx", "unparsable response")
	}
	if resp.RtCd != "0" {
		return 0, NewProviderError("fx", providerMessage(resp.Msg1))
	}
	fields := firstObject(resp.Output1)
	rate, err := strconv.ParseFloat(pick(fields, "ovrs_nmix_prpr", "stck_prpr"), 64)
	if err != nil || rate <= 0 {
		return 0, NewProviderError("fx", "no usable rate in payload")
	}
	return rate, nil
}

func (c *Collector) fetchFallbackFX(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.FXFallbackURL, nil)
	if err != nil {
		return 0, NewNetworkError("fx fallback", "build request", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, NewNetworkError("fx fallback", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, NewProviderError("fx fallback", fmt.Sprintf("status %d", resp.StatusCode))
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, NewProviderError("fx fallback", "unparsable response")
	}
	krw, ok := payload.Rates["KRW"]
	if !ok || krw <= 0 {
		return 0, NewProviderError("fx fallback", "KRW rate absent")
	}
	return krw, nil
}

// get performs one authenticated, rate-paced GET against the brokerage API.
func (c *Collector) get(ctx context.Context, path, trID string, params url.Values) ([]byte, error) {
	op := path
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, NewNetworkError(op, "pacing wait cancelled", err)
	}

	header, err := c.auth.header(ctx, trID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.auth.BaseURL()+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, NewNetworkError(op, "build request", err)
	}
	req.Header = header

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewNetworkError(op, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError(op, "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewProviderError(op, fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(body), 120)))
	}
	return body, nil
}

func (c *Collector) investorIndexName() string {
	for _, idx := range c.cfg.Indices {
		if idx.Code == c.cfg.InvestorIndex {
			return idx.Name
		}
	}
	return c.cfg.InvestorIndex
}

// firstObject returns raw as a string map; when raw is an array, its first
// element. The index endpoints return either shape depending on period.
func firstObject(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]string
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}
	var arr []map[string]string
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) > 0 {
		return arr[0]
	}
	return nil
}

func pick(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := fields[k]; v != "" {
			return v
		}
	}
	return ""
}

func providerMessage(msg1 string) string {
	if msg1 == "" {
		return "unknown provider error"
	}
	return msg1
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
