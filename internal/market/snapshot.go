package market

import "encoding/json"

// IndexQuote is one tracked index in a snapshot. Price and change are carried
// as the provider returns them (decimal strings); Err is set instead when the
// fetch failed.
type IndexQuote struct {
	Price  string `json:"price,omitempty"`
	Change string `json:"change,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Snapshot is the aggregated, possibly partial, market data for one cycle.
// Immutable once Collect returns; failed fields carry error markers rather
// than aborting the cycle.
type Snapshot struct {
	Indices      map[string]IndexQuote      `json:"indices"`
	Investors    map[string]json.RawMessage `json:"investors"`
	ExchangeRate *float64                   `json:"exchange_rate"`
	Timestamp    string                     `json:"timestamp"` // session-local, minute precision
}

// JSON renders the snapshot as indented JSON for the Analyst prompt.
func (s Snapshot) JSON() string {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return `{"error":"snapshot marshal failed"}`
	}
	return string(b)
}
