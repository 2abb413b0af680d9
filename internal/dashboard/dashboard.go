// Package dashboard runs the interaction cycle behind the index dashboard:
// resolve the selected index and ticker, parse the date range, fetch price
// history and financials, and assemble a View for the renderers. Upstream
// failures never abort a cycle; they become messages on the view.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"

	"github.com/seenimoa/indexdash/internal/datasource"
	"github.com/seenimoa/indexdash/pkg/models"
	"github.com/seenimoa/indexdash/pkg/utils"
)

// Sidebar texts.
const (
	NoDataMessage        = "No data available for the selected date range."
	HeadlinesUnavailable = "Headlines are unavailable right now."
)

// ErrUnknownIndex is returned for an index key that names no configured index.
var ErrUnknownIndex = errors.New("unknown index")

// MarketData is what a cycle needs from the market data layer.
type MarketData interface {
	ListSymbols(ctx context.Context, ix models.Index) ([]string, error)
	GetPriceHistory(ctx context.Context, ix models.Index, symbol string, r models.DateRange) (models.PriceSeries, error)
	GetFinancials(ctx context.Context, ix models.Index, symbol string) (*models.Financials, error)
}

// QuoteSource supplies the live price header.
type QuoteSource interface {
	GetQuote(ctx context.Context, ix models.Index, symbol string) (*models.Quote, error)
}

// HeadlineSource supplies recent news for a ticker.
type HeadlineSource interface {
	GetHeadlines(ctx context.Context, ix models.Index, symbol string, limit int) ([]models.Headline, error)
}

// Input is one interaction: the widget values submitted by the page.
type Input struct {
	Index  string `json:"index"`
	Ticker string `json:"ticker"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// Level is the severity of a sidebar message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is a displayable sidebar line.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// View is the result of one cycle, everything the page shows.
type View struct {
	SessionID string            `json:"session_id,omitempty"`
	State     State             `json:"state"`
	Index     models.Index      `json:"index"`
	Symbols   []string          `json:"symbols"`
	Ticker    string            `json:"ticker,omitempty"`
	StartText string            `json:"start_text"`
	EndText   string            `json:"end_text"`
	Range     *models.DateRange `json:"range,omitempty"`
	Messages  []Message         `json:"messages,omitempty"`

	Series    *models.PriceSeries `json:"series,omitempty"` // nil unless non-empty
	Company   *models.CompanyInfo `json:"company,omitempty"`
	Income    *models.Statement   `json:"income,omitempty"`
	CashFlow  *models.Statement   `json:"cash_flow,omitempty"`
	Quote     *models.Quote       `json:"quote,omitempty"`
	Headlines []models.Headline   `json:"headlines,omitempty"`
	NewsNote  string              `json:"news_note,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// HasChart reports whether a price chart should be drawn.
func (v *View) HasChart() bool { return v.Series != nil && !v.Series.Empty() }

// Errors returns the texts of error-level messages.
func (v *View) Errors() []string { return v.texts(LevelError) }

// Warnings returns the texts of warning-level messages.
func (v *View) Warnings() []string { return v.texts(LevelWarning) }

func (v *View) texts(level Level) []string {
	var out []string
	for _, m := range v.Messages {
		if m.Level == level {
			out = append(out, m.Text)
		}
	}
	return out
}

func (v *View) add(level Level, text string) {
	v.Messages = append(v.Messages, Message{Level: level, Text: text})
}

// Options tunes a Dashboard.
type Options struct {
	DefaultIndex    models.IndexID
	StrictLineItems bool // missing allow-listed rows replace the panel with an error
	HeadlineLimit   int
	Logger          *log.Logger
}

// Dashboard runs interaction cycles against its data sources.
type Dashboard struct {
	data   MarketData
	quotes QuoteSource    // optional
	news   HeadlineSource // optional
	opts   Options
	log    *log.Logger
	now    func() time.Time
}

// New creates a dashboard. quotes and news may be nil to disable the live
// quote header and the headlines panel.
func New(data MarketData, quotes QuoteSource, news HeadlineSource, opts Options) *Dashboard {
	if opts.DefaultIndex == "" {
		opts.DefaultIndex = models.Indices[0].ID
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &Dashboard{data: data, quotes: quotes, news: news, opts: opts, log: logger, now: time.Now}
}

// ResolveIndex looks up an index key, falling back to the default for an
// empty key.
func (d *Dashboard) ResolveIndex(key string) (models.Index, error) {
	if strings.TrimSpace(key) == "" {
		key = string(d.opts.DefaultIndex)
	}
	ix, ok := models.LookupIndex(key)
	if !ok {
		return models.Index{}, fmt.Errorf("%w %q", ErrUnknownIndex, key)
	}
	return ix, nil
}

// Run executes one full cycle for the session and returns the view. The
// view is also stored as the session's last result.
func (d *Dashboard) Run(ctx context.Context, s *Session, in Input) *View {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := d.now()
	v := d.run(ctx, s, in)
	v.SessionID = s.ID
	v.State = s.state
	v.GeneratedAt = d.now()
	s.last = v

	d.log.Debug().
		Str("session", s.ID).
		Str("index", string(v.Index.ID)).
		Str("ticker", v.Ticker).
		Str("state", string(v.State)).
		Int("errors", len(v.Errors())).
		Int("warnings", len(v.Warnings())).
		Dur("took", v.GeneratedAt.Sub(start)).
		Msg("dashboard cycle")
	return v
}

func (d *Dashboard) run(ctx context.Context, s *Session, in Input) *View {
	v := &View{StartText: in.Start, EndText: in.End}

	// Index selection. An empty selection keeps the session's index.
	key := strings.TrimSpace(in.Index)
	if key == "" && s.hasIndex {
		key = string(s.index.ID)
	}
	ix, err := d.ResolveIndex(key)
	if err != nil {
		s.state = AwaitingIndexSelection
		v.add(LevelError, fmt.Sprintf("Unknown index %q.", strings.TrimSpace(in.Index)))
		return v
	}
	v.Index = ix

	if !s.hasIndex || s.index.ID != ix.ID || s.symbols == nil {
		symbols, err := d.data.ListSymbols(ctx, ix)
		if err != nil {
			d.warn(err, "symbol list", ix, "")
			s.index, s.hasIndex, s.symbols, s.ticker = ix, true, nil, ""
			s.state = AwaitingIndexSelection
			d.addErrors(v, err)
			return v
		}
		if s.hasIndex && s.index.ID != ix.ID {
			s.ticker = ""
		}
		s.index, s.hasIndex, s.symbols = ix, true, symbols
	}
	v.Symbols = s.symbols
	s.state = AwaitingTickerSelection

	// Ticker selection, defaulting to the first listed symbol.
	if len(s.symbols) == 0 {
		v.add(LevelWarning, fmt.Sprintf("No symbols found for %s.", ix.Name))
		return v
	}
	ticker, found := pickTicker(s.symbols, in.Ticker, s.ticker)
	if !found && strings.TrimSpace(in.Ticker) != "" {
		v.add(LevelWarning, fmt.Sprintf("%s is not in the %s list; showing %s.", strings.TrimSpace(in.Ticker), ix.Name, ticker))
	}
	s.ticker = ticker
	v.Ticker = ticker
	s.state = AwaitingDates

	// Dates.
	s.startText, s.endText = in.Start, in.End
	r, err := utils.ParseDateRange(in.Start, in.End)
	if err != nil {
		s.dates = models.DateRange{}
		var de *utils.DateError
		if errors.As(err, &de) {
			d.log.Debug().Str("field", de.Field).Str("input", de.Input).Str("reason", de.Reason).Msg("date rejected")
			v.add(LevelError, utils.InvalidDateMessage)
		}
		return v
	}
	s.dates = r
	v.Range = &r

	// Price history.
	series, err := d.data.GetPriceHistory(ctx, ix, ticker, r)
	switch {
	case err != nil:
		d.warn(err, "price history", ix, ticker)
		d.addErrors(v, err)
	case series.Empty():
		v.add(LevelWarning, NoDataMessage)
	default:
		v.Series = &series
	}

	// Financials, fetched whether or not the series had data.
	fin, err := d.data.GetFinancials(ctx, ix, ticker)
	if err != nil {
		d.warn(err, "financials", ix, ticker)
	}
	d.applyFinancials(v, fin, err)

	if d.quotes != nil {
		q, err := d.quotes.GetQuote(ctx, ix, ticker)
		if err != nil {
			d.warn(err, "live quote", ix, ticker)
		} else {
			v.Quote = q
		}
	}

	if d.news != nil {
		hs, err := d.news.GetHeadlines(ctx, ix, ticker, d.opts.HeadlineLimit)
		if err != nil {
			d.warn(err, "headlines", ix, ticker)
			v.NewsNote = HeadlinesUnavailable
		} else {
			v.Headlines = hs
		}
	}

	s.state = Rendered
	return v
}

// applyFinancials places the fetched panels on the view and turns the
// fetch errors into messages. Missing allow-listed rows are a warning, or
// an error replacing the panel in strict mode.
func (d *Dashboard) applyFinancials(v *View, fin *models.Financials, err error) {
	if fin != nil {
		if len(fin.Info.Fields) > 0 {
			info := fin.Info
			v.Company = &info
		}
		v.Income = d.statementPanel(fin.Income)
		v.CashFlow = d.statementPanel(fin.CashFlow)
	}

	for _, e := range flatten(err) {
		level := LevelError
		if datasource.KindOf(e) == datasource.KindMissingField && !d.opts.StrictLineItems {
			level = LevelWarning
		}
		for _, text := range datasource.Describe(e) {
			v.add(level, text)
		}
	}
}

func (d *Dashboard) statementPanel(stmt models.Statement) *models.Statement {
	if len(stmt.Rows) == 0 {
		return nil
	}
	if d.opts.StrictLineItems && len(stmt.MissingLabels()) > 0 {
		return nil
	}
	return &stmt
}

// pickTicker returns the listed symbol matching want, then prev, ignoring
// case. found reports whether want itself matched; with no match the first
// symbol is returned.
func pickTicker(symbols []string, want, prev string) (ticker string, found bool) {
	if t, ok := FindSymbol(symbols, want); ok {
		return t, true
	}
	if strings.TrimSpace(want) == "" {
		if t, ok := FindSymbol(symbols, prev); ok {
			return t, false
		}
	}
	return symbols[0], false
}

// FindSymbol returns the listed symbol equal to s, ignoring case and
// surrounding space.
func FindSymbol(symbols []string, s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, sym := range symbols {
		if strings.EqualFold(sym, s) {
			return sym, true
		}
	}
	return "", false
}

func (d *Dashboard) addErrors(v *View, err error) {
	for _, text := range datasource.Describe(err) {
		v.add(LevelError, text)
	}
}

func (d *Dashboard) warn(err error, what string, ix models.Index, ticker string) {
	d.log.Warn().
		Err(err).
		Str("index", string(ix.ID)).
		Str("ticker", ticker).
		Str("kind", string(datasource.KindOf(err))).
		Msgf("%s failed", what)
}

// flatten splits an errors.Join result into its parts.
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
