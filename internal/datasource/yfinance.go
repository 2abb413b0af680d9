package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/seenimoa/indexdash/pkg/models"
)

// Endpoints locates the Yahoo Finance APIs used by YFinance.
type Endpoints struct {
	Chart        string // v8 chart, symbol appended as a path segment
	QuoteSummary string // v10 quoteSummary, symbol appended as a path segment
	Timeseries   string // fundamentals timeseries, symbol appended as a path segment
	Crumb        string // returns the crumb paired with the session cookie
	Cookie       string // any page that sets the session cookie
}

// DefaultEndpoints returns the public Yahoo Finance endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Chart:        "https://query1.finance.yahoo.com/v8/finance/chart",
		QuoteSummary: "https://query2.finance.yahoo.com/v10/finance/quoteSummary",
		Timeseries:   "https://query2.finance.yahoo.com/ws/fundamentals-timeseries/v1/finance/timeseries",
		Crumb:        "https://query1.finance.yahoo.com/v1/test/getcrumb",
		Cookie:       "https://fc.yahoo.com",
	}
}

// YFinance reads price history, company metadata and annual statements
// from Yahoo Finance.
type YFinance struct {
	http *HTTPClient
	ep   Endpoints

	mu    sync.Mutex
	crumb string
}

// NewYFinance creates a Yahoo Finance client.
func NewYFinance(h *HTTPClient, ep Endpoints) *YFinance {
	return &YFinance{http: h, ep: ep}
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol               string `json:"symbol"`
	Currency             string `json:"currency"`
	ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	GMTOffset            int    `json:"gmtoffset"`
}

type yfIndicators struct {
	Quote    []yfOHLCV    `json:"quote"`
	AdjClose []yfAdjClose `json:"adjclose"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

type yfQuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *yfError                     `json:"error"`
	} `json:"quoteSummary"`
}

type yfTimeseriesResponse struct {
	Timeseries struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *yfError                     `json:"error"`
	} `json:"timeseries"`
}

type yfTimeseriesMeta struct {
	Symbol []string `json:"symbol"`
	Type   []string `json:"type"`
}

type yfTimeseriesPoint struct {
	AsOfDate      string `json:"asOfDate"`
	PeriodType    string `json:"periodType"`
	CurrencyCode  string `json:"currencyCode"`
	ReportedValue struct {
		Raw *float64 `json:"raw"`
		Fmt string   `json:"fmt"`
	} `json:"reportedValue"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *yfError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// noData reports whether a chart error means "nothing in range" rather
// than a failed request.
func (e *yfError) noData() bool {
	if e == nil {
		return false
	}
	d := strings.ToLower(e.Description)
	return e.Code == "Not Found" || strings.Contains(d, "no data found") || strings.Contains(d, "delisted")
}

// --- Price history ---

// GetPriceHistory returns daily bars for symbol with Start <= date < End,
// the same half-open range the provider's download endpoint uses. A range
// with no trading data, or an empty or reversed range, is an empty series.
func (y *YFinance) GetPriceHistory(ctx context.Context, symbol string, r models.DateRange) (models.PriceSeries, error) {
	series := models.PriceSeries{Symbol: symbol}
	op := "price history for " + symbol
	if !r.End.After(r.Start) {
		return series, nil
	}

	u := fmt.Sprintf(
		"%s/%s?period1=%d&period2=%d&interval=1d&events=history&includeAdjustedClose=true",
		y.ep.Chart, url.PathEscape(symbol), r.Start.Unix(), r.End.Unix(),
	)

	data, err := y.http.getBytes(ctx, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		var he *ErrHTTP
		if errors.As(err, &he) {
			var resp yfChartResponse
			if json.Unmarshal([]byte(he.Body), &resp) == nil && resp.Chart.Error != nil {
				if resp.Chart.Error.noData() {
					return series, nil
				}
				return series, newError(KindUpstream, op, resp.Chart.Error)
			}
		}
		return series, newError(KindNetwork, op, err)
	}

	var resp yfChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return series, newError(KindParse, op, err)
	}
	if resp.Chart.Error != nil {
		if resp.Chart.Error.noData() {
			return series, nil
		}
		return series, newError(KindUpstream, op, resp.Chart.Error)
	}
	if len(resp.Chart.Result) == 0 {
		return series, nil
	}

	result := resp.Chart.Result[0]
	series.Currency = result.Meta.Currency
	series.Bars = parseYFCandles(result)
	return series, nil
}

// parseYFCandles converts the column arrays of a chart result into bars.
// Rows without a close are dropped. Timestamps are placed in the exchange's
// own offset so each bar keeps its trading date.
func parseYFCandles(result yfChartResult) []models.OHLCV {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	loc := time.UTC
	if result.Meta.GMTOffset != 0 {
		loc = time.FixedZone(result.Meta.ExchangeTimezoneName, result.Meta.GMTOffset)
	}

	q := result.Indicators.Quote[0]
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	candles := make([]models.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		c := models.OHLCV{
			Timestamp: time.Unix(ts, 0).In(loc),
			Close:     *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			c.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			c.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			c.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = *q.Volume[i]
		}
		if i < len(adjCloses) && adjCloses[i] != nil {
			c.AdjClose = *adjCloses[i]
		}
		candles = append(candles, c)
	}
	return candles
}

// --- Company info ---

// infoModules are the quoteSummary modules merged into CompanyInfo, in
// merge order: later modules overwrite earlier keys.
var infoModules = []string{"assetProfile", "summaryDetail", "quoteType", "price"}

// GetCompanyInfo returns the provider's metadata for symbol as a flat
// key/value mapping.
func (y *YFinance) GetCompanyInfo(ctx context.Context, symbol string) (models.CompanyInfo, error) {
	info := models.CompanyInfo{Symbol: symbol, Fields: map[string]any{}}
	op := "company info for " + symbol

	crumb, err := y.ensureCrumb(ctx)
	if err != nil {
		return info, newError(KindNetwork, op, err)
	}

	q := url.Values{}
	q.Set("modules", strings.Join(infoModules, ","))
	q.Set("formatted", "false")
	q.Set("crumb", crumb)
	u := fmt.Sprintf("%s/%s?%s", y.ep.QuoteSummary, url.PathEscape(symbol), q.Encode())

	data, err := y.http.getBytes(ctx, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		var he *ErrHTTP
		if errors.As(err, &he) {
			if he.StatusCode == http.StatusUnauthorized {
				y.resetCrumb()
			}
			var resp yfQuoteSummaryResponse
			if json.Unmarshal([]byte(he.Body), &resp) == nil && resp.QuoteSummary.Error != nil {
				return info, newError(KindUpstream, op, resp.QuoteSummary.Error)
			}
		}
		return info, newError(KindNetwork, op, err)
	}

	var resp yfQuoteSummaryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return info, newError(KindParse, op, err)
	}
	if resp.QuoteSummary.Error != nil {
		return info, newError(KindUpstream, op, resp.QuoteSummary.Error)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return info, newError(KindUpstream, op, ErrTickerNotFound)
	}

	for _, module := range infoModules {
		raw, ok := resp.QuoteSummary.Result[0][module]
		if !ok {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return info, newError(KindParse, op, fmt.Errorf("module %s: %w", module, err))
		}
		flattenInto(info.Fields, fields)
	}
	return info, nil
}

// flattenInto copies scalar fields into dst. {"raw": x, "fmt": ...}
// wrappers collapse to x; other nested objects and lists are skipped.
func flattenInto(dst, src map[string]any) {
	for k, v := range src {
		switch val := v.(type) {
		case map[string]any:
			if raw, ok := val["raw"]; ok {
				dst[k] = raw
			}
		case []any:
			// company officers and similar lists
		case nil:
		default:
			dst[k] = val
		}
	}
}

// ensureCrumb returns the session crumb, fetching cookie and crumb once.
func (y *YFinance) ensureCrumb(ctx context.Context) (string, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.crumb != "" {
		return y.crumb, nil
	}

	// The cookie host answers with an error status but still sets the cookie.
	if resp, err := y.http.do(ctx, y.ep.Cookie, map[string]string{"Accept": "text/html"}); err == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10)) //nolint:errcheck
		resp.Body.Close()
	}

	data, err := y.http.getBytes(ctx, y.ep.Crumb, map[string]string{"Accept": "text/plain"})
	if err != nil {
		return "", fmt.Errorf("fetch crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(data))
	if crumb == "" || strings.ContainsAny(crumb, "<{ ") {
		return "", fmt.Errorf("fetch crumb: unexpected response %q", truncate(crumb, 64))
	}
	y.crumb = crumb
	return crumb, nil
}

func (y *YFinance) resetCrumb() {
	y.mu.Lock()
	y.crumb = ""
	y.mu.Unlock()
}

// --- Annual statements ---

// statementsSince is the earliest period requested from the timeseries API.
var statementsSince = time.Date(2016, 12, 31, 0, 0, 0, 0, time.UTC)

// GetStatement returns every annual row the provider reports for the
// statement kind, newest period first. The rows requested are the full
// statement plus any extra labels given.
func (y *YFinance) GetStatement(ctx context.Context, symbol string, kind models.StatementKind, extra ...string) (models.Statement, error) {
	stmt := models.Statement{Kind: kind, Symbol: symbol}
	op := statementOpName(kind) + " for " + symbol

	keys := statementKeys(kind, extra)
	types := make([]string, len(keys))
	for i, k := range keys {
		types[i] = "annual" + k
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("type", strings.Join(types, ","))
	q.Set("period1", fmt.Sprint(statementsSince.Unix()))
	q.Set("period2", fmt.Sprint(time.Now().Unix()))
	u := fmt.Sprintf("%s/%s?%s", y.ep.Timeseries, url.PathEscape(symbol), q.Encode())

	data, err := y.http.getBytes(ctx, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		return stmt, newError(KindNetwork, op, err)
	}

	var resp yfTimeseriesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return stmt, newError(KindParse, op, err)
	}
	if resp.Timeseries.Error != nil {
		return stmt, newError(KindUpstream, op, resp.Timeseries.Error)
	}

	series, err := decodeTimeseries(resp.Timeseries.Result)
	if err != nil {
		return stmt, newError(KindParse, op, err)
	}
	buildStatement(&stmt, keys, series)
	return stmt, nil
}

func statementOpName(kind models.StatementKind) string {
	if kind == models.StatementCashFlow {
		return "Cash flow"
	}
	return "Income statement"
}

// decodeTimeseries maps each returned row label (without the "annual"
// prefix) to its values by period-end date.
func decodeTimeseries(results []map[string]json.RawMessage) (map[string]map[string]float64, error) {
	out := make(map[string]map[string]float64)
	for _, r := range results {
		var meta yfTimeseriesMeta
		if raw, ok := r["meta"]; ok {
			if err := json.Unmarshal(raw, &meta); err != nil {
				return nil, fmt.Errorf("timeseries meta: %w", err)
			}
		}
		if len(meta.Type) == 0 {
			continue
		}
		typ := meta.Type[0]
		raw, ok := r[typ]
		if !ok {
			continue // type requested but nothing reported
		}
		var points []*yfTimeseriesPoint
		if err := json.Unmarshal(raw, &points); err != nil {
			return nil, fmt.Errorf("timeseries %s: %w", typ, err)
		}

		values := make(map[string]float64)
		for _, p := range points {
			if p == nil || p.AsOfDate == "" || p.ReportedValue.Raw == nil {
				continue
			}
			values[p.AsOfDate] = *p.ReportedValue.Raw
		}
		if len(values) > 0 {
			out[strings.TrimPrefix(typ, "annual")] = values
		}
	}
	return out, nil
}

// buildStatement lays the decoded series out as rows in key order with
// one column per period-end date, newest first.
func buildStatement(stmt *models.Statement, keys []string, series map[string]map[string]float64) {
	seen := make(map[string]bool)
	for _, values := range series {
		for d := range values {
			if !seen[d] {
				seen[d] = true
				stmt.Periods = append(stmt.Periods, d)
			}
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(stmt.Periods)))

	for _, k := range keys {
		values, ok := series[k]
		if !ok {
			continue
		}
		row := models.StatementRow{Name: k, Values: make([]*float64, len(stmt.Periods))}
		for i, d := range stmt.Periods {
			if v, ok := values[d]; ok {
				row.Values[i] = &v
			}
		}
		stmt.Rows = append(stmt.Rows, row)
	}
}

// statementKeys returns the full statement key list with any extra labels
// appended once.
func statementKeys(kind models.StatementKind, extra []string) []string {
	base := incomeStatementKeys
	if kind == models.StatementCashFlow {
		base = cashFlowKeys
	}
	keys := append([]string(nil), base...)
	have := make(map[string]bool, len(keys))
	for _, k := range keys {
		have[k] = true
	}
	for _, k := range extra {
		if !have[k] {
			have[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
