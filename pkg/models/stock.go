// Package models defines the core data structures shared by the dashboard,
// its data sources and its renderers.
package models

import (
	"strings"
	"time"
)

// DateLayout is the canonical date form passed to the market data provider.
const DateLayout = "2006-01-02"

// OHLCV represents a single daily bar of price data.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	AdjClose  float64   `json:"adj_close,omitempty"`
}

// PriceSeries is the daily price history of one symbol. It may be empty.
type PriceSeries struct {
	Symbol   string  `json:"symbol"`
	Currency string  `json:"currency,omitempty"`
	Bars     []OHLCV `json:"bars"`
}

// Empty reports whether the series carries no bars.
func (s PriceSeries) Empty() bool { return len(s.Bars) == 0 }

// Closes returns the close prices and their dates in canonical form.
func (s PriceSeries) Closes() ([]float64, []string) {
	values := make([]float64, len(s.Bars))
	dates := make([]string, len(s.Bars))
	for i, b := range s.Bars {
		values[i] = b.Close
		dates[i] = b.Timestamp.Format(DateLayout)
	}
	return values, dates
}

// DateRange is a validated start/end pair of calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// StartString returns the start date as yyyy-mm-dd.
func (r DateRange) StartString() string { return r.Start.Format(DateLayout) }

// EndString returns the end date as yyyy-mm-dd.
func (r DateRange) EndString() string { return r.End.Format(DateLayout) }

// IsZero reports whether the range was never set.
func (r DateRange) IsZero() bool { return r.Start.IsZero() && r.End.IsZero() }

// CompanyInfo is the provider's company metadata, kept as a loose
// key/value mapping. Nothing in it is validated.
type CompanyInfo struct {
	Symbol string         `json:"symbol"`
	Fields map[string]any `json:"fields"`
}

// Text returns a string field.
func (c CompanyInfo) Text(key string) (string, bool) {
	v, ok := c.Fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Number returns a numeric field.
func (c CompanyInfo) Number(key string) (float64, bool) {
	switch v := c.Fields[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// LongName returns the company's long name, falling back to the short name
// and then to the symbol.
func (c CompanyInfo) LongName() string {
	if s, ok := c.Text("longName"); ok {
		return s
	}
	if s, ok := c.Text("shortName"); ok {
		return s
	}
	return c.Symbol
}

// Sector returns the company's sector.
func (c CompanyInfo) Sector() (string, bool) { return c.Text("sector") }

// Industry returns the company's industry.
func (c CompanyInfo) Industry() (string, bool) { return c.Text("industry") }

// MarketCap returns the company's market capitalisation.
func (c CompanyInfo) MarketCap() (float64, bool) { return c.Number("marketCap") }

// Currency returns the trading currency reported by the provider.
func (c CompanyInfo) Currency() (string, bool) { return c.Text("currency") }

// Quote is the live price header shown next to the company name.
type Quote struct {
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name"`
	Price        float64   `json:"price"`
	PriceText    string    `json:"price_text,omitempty"`
	ChangePct    float64   `json:"change_pct"`
	ChangeText   string    `json:"change_text,omitempty"`
	MarketStatus string    `json:"market_status,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Headline is a single news item for a ticker.
type Headline struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Summary   string    `json:"summary,omitempty"`
	Source    string    `json:"source,omitempty"`
	Published time.Time `json:"published"`
}
