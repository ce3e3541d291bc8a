package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/minjae-dev/krx-advisor/internal/config"
)

// fakeKIS serves the token and quotation endpoints the collector uses.
type fakeKIS struct {
	tokenRequests int
	failIndex     map[string]bool // codes whose index fetch should fail
	failInvestors bool
	failFX        bool
}

func (f *fakeKIS) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/tokenP", func(w http.ResponseWriter, r *http.Request) {
		f.tokenRequests++
		expiry := time.Now().Add(24 * time.Hour).Format(tokenExpiryLayout)
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":               "test-token",
			"access_token_token_expired": expiry,
		})
	})
	mux.HandleFunc("/uapi/domestic-stock/v1/quotations/inquire-daily-index-chartprice", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		code := r.URL.Query().Get("FID_INPUT_ISCD")
		if f.failIndex[code] {
			json.NewEncoder(w).Encode(map[string]any{"rt_cd": "1", "msg1": "quota exceeded"})
			return
		}
		price := "2501.12"
		if code == "1001" {
			price = "712.30"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"rt_cd": "0",
			"output1": []map[string]string{{
				"bstp_nmiv_prpr":      price,
				"bstp_nmiv_prdy_ctrt": "0.45",
			}},
		})
	})
	mux.HandleFunc("/uapi/domestic-stock/v1/quotations/inquire-investor", func(w http.ResponseWriter, r *http.Request) {
		if f.failInvestors {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"rt_cd":  "0",
			"output": []map[string]string{{"invst": "foreign", "net": "1200"}},
		})
	})
	mux.HandleFunc("/uapi/overseas-price/v1/quotations/inquire-daily-chartprice", func(w http.ResponseWriter, r *http.Request) {
		if f.failFX {
			json.NewEncoder(w).Encode(map[string]any{"rt_cd": "1", "msg1": "fx unavailable"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"rt_cd":   "0",
			"output1": map[string]string{"ovrs_nmix_prpr": "1355.20"},
		})
	})
	// Fallback FX source (open.er-api.com shape).
	mux.HandleFunc("/v6/latest/USD", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"rates": map[string]float64{"KRW": 1349.9}})
	})
	return mux
}

func testCollector(t *testing.T, f *fakeKIS) *Collector {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	auth := NewAuth(AuthConfig{AppKey: "k", AppSecret: "s", BaseURL: srv.URL})
	cfg := config.Market{
		Indices:        []config.Index{{Name: "KOSPI", Code: "0001"}, {Name: "KOSDAQ", Code: "1001"}},
		InvestorIndex:  "0001",
		RequestPauseMs: 1,
		TimeoutMs:      2000,
		FXFallbackURL:  srv.URL + "/v6/latest/USD",
	}
	return NewCollector(auth, cfg, time.UTC, zerolog.Nop())
}

func TestCollect_AllSourcesHealthy(t *testing.T) {
	c := testCollector(t, &fakeKIS{})
	snap := c.Collect(context.Background())

	if got := snap.Indices["KOSPI"]; got.Price != "2501.12" || got.Err != "" {
		t.Fatalf("KOSPI: %+v", got)
	}
	if got := snap.Indices["KOSDAQ"]; got.Price != "712.30" {
		t.Fatalf("KOSDAQ: %+v", got)
	}
	if snap.ExchangeRate == nil || *snap.ExchangeRate != 1355.20 {
		t.Fatalf("fx: %v", snap.ExchangeRate)
	}
	if !strings.Contains(string(snap.Investors["KOSPI"]), "foreign") {
		t.Fatalf("investors: %s", snap.Investors["KOSPI"])
	}
	if snap.Timestamp == "" {
		t.Fatal("snapshot not timestamped")
	}
}

func TestCollect_OneIndexFailingDoesNotBlockOthers(t *testing.T) {
	c := testCollector(t, &fakeKIS{failIndex: map[string]bool{"0001": true}})
	snap := c.Collect(context.Background())

	if got := snap.Indices["KOSPI"]; got.Err == "" || !strings.Contains(got.Err, "quota exceeded") {
		t.Fatalf("want error marker for KOSPI, got %+v", got)
	}
	if got := snap.Indices["KOSDAQ"]; got.Price != "712.30" || got.Err != "" {
		t.Fatalf("KOSDAQ should be unaffected: %+v", got)
	}
}

func TestCollect_FXFallsBackToPublicSource(t *testing.T) {
	c := testCollector(t, &fakeKIS{failFX: true})
	snap := c.Collect(context.Background())

	if snap.ExchangeRate == nil || *snap.ExchangeRate != 1349.9 {
		t.Fatalf("want fallback rate, got %v", snap.ExchangeRate)
	}
}

func TestCollect_InvestorFailureLeavesMarker(t *testing.T) {
	c := testCollector(t, &fakeKIS{failInvestors: true})
	snap := c.Collect(context.Background())

	var marker map[string]string
	if err := json.Unmarshal(snap.Investors["KOSPI"], &marker); err != nil {
		t.Fatalf("marker not JSON: %s", snap.Investors["KOSPI"])
	}
	if marker["error"] == "" {
		t.Fatalf("want error marker, got %v", marker)
	}
}

func TestAuth_TokenCachedAcrossCalls(t *testing.T) {
	f := &fakeKIS{}
	c := testCollector(t, f)

	c.Collect(context.Background())
	c.Collect(context.Background())

	if f.tokenRequests != 1 {
		t.Fatalf("want 1 token request for both cycles, got %d", f.tokenRequests)
	}
}

func TestFetchIndex_ObjectOutputShape(t *testing.T) {
	// Some endpoints return output1 as a single object rather than an array.
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/tokenP", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "t", "access_token_token_expired": "bad"})
	})
	mux.HandleFunc("/uapi/domestic-stock/v1/quotations/inquire-daily-index-chartprice", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"rt_cd":   "0",
			"output1": map[string]string{"stck_prpr": "2450.00", "prdy_ctrt": "-1.02"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	auth := NewAuth(AuthConfig{AppKey: "k", AppSecret: "s", BaseURL: srv.URL})
	c := NewCollector(auth, config.Market{
		Indices: []config.Index{{Name: "KOSPI", Code: "0001"}}, InvestorIndex: "0001",
		RequestPauseMs: 1, TimeoutMs: 2000,
	}, time.UTC, zerolog.Nop())

	quote, err := c.FetchIndex(context.Background(), "0001")
	if err != nil {
		t.Fatalf("FetchIndex: %v", err)
	}
	if quote.Price != "2450.00" || quote.Change != "-1.02" {
		t.Fatalf("fallback keys not used: %+v", quote)
	}
}
