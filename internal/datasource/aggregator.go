package datasource

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/indexdash/pkg/models"
	"github.com/seenimoa/indexdash/pkg/utils"
)

// Options configures an Aggregator.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	SymbolURLs   map[models.IndexID]string
	Endpoints    Endpoints
	HeadlinesURL string

	RateLimit float64 // outbound requests per second; 0 is unlimited
	RateBurst int
}

// Aggregator is the single entry point the dashboard uses for market data.
// It maps listed symbols to provider symbols and fans statement fetches out
// concurrently.
type Aggregator struct {
	symbols  *Symbols
	yfinance *YFinance
	quotes   *Quotes
	news     *News
}

// NewAggregator creates an aggregator with all sources sharing one HTTP client.
func NewAggregator(opts Options) *Aggregator {
	h := NewHTTPClient(opts.Timeout, opts.UserAgent)
	h.SetRateLimiter(NewRateLimiter(opts.RateLimit, opts.RateBurst))
	return &Aggregator{
		symbols:  NewSymbols(h, opts.SymbolURLs),
		yfinance: NewYFinance(h, opts.Endpoints),
		quotes:   NewQuotes(opts.Timeout),
		news:     NewNews(h, opts.HeadlinesURL),
	}
}

// ListSymbols fetches the constituent symbols of the index. Every call
// goes to the source.
func (a *Aggregator) ListSymbols(ctx context.Context, ix models.Index) ([]string, error) {
	return a.symbols.ListSymbols(ctx, ix)
}

// GetPriceHistory returns daily bars for a listed symbol over r.
func (a *Aggregator) GetPriceHistory(ctx context.Context, ix models.Index, symbol string, r models.DateRange) (models.PriceSeries, error) {
	series, err := a.yfinance.GetPriceHistory(ctx, ix.ProviderSymbol(symbol), r)
	series.Symbol = symbol
	return series, err
}

// GetFinancials fetches company info and both full annual statements
// concurrently, then keeps the index's allow-listed rows. Failures of the
// individual fetches do not cancel each other: whatever succeeded is
// returned together with the joined errors, including a KindMissingField
// error for allow-listed rows the provider did not report.
func (a *Aggregator) GetFinancials(ctx context.Context, ix models.Index, symbol string) (*models.Financials, error) {
	psym := ix.ProviderSymbol(symbol)
	fin := &models.Financials{
		Info:     models.CompanyInfo{Symbol: symbol, Fields: map[string]any{}},
		Income:   models.Statement{Kind: models.StatementIncome, Symbol: symbol},
		CashFlow: models.Statement{Kind: models.StatementCashFlow, Symbol: symbol},
	}

	var mu sync.Mutex
	var errs []error
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	var income, cashFlow models.Statement
	var incomeOK, cashFlowOK bool

	var g errgroup.Group

	g.Go(func() error {
		info, err := a.yfinance.GetCompanyInfo(ctx, psym)
		if err != nil {
			record(err)
			return nil // non-fatal
		}
		info.Symbol = symbol
		mu.Lock()
		fin.Info = info
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		stmt, err := a.yfinance.GetStatement(ctx, psym, models.StatementIncome, ix.Items(models.StatementIncome)...)
		if err != nil {
			record(err)
			return nil
		}
		mu.Lock()
		income, incomeOK = stmt, true
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		stmt, err := a.yfinance.GetStatement(ctx, psym, models.StatementCashFlow, ix.Items(models.StatementCashFlow)...)
		if err != nil {
			record(err)
			return nil
		}
		mu.Lock()
		cashFlow, cashFlowOK = stmt, true
		mu.Unlock()
		return nil
	})

	g.Wait()

	if incomeOK {
		income.Symbol = symbol
		stmt, err := SelectLineItems(income, ix.Items(models.StatementIncome))
		fin.Income = stmt
		if err != nil {
			errs = append(errs, err)
		}
	}
	if cashFlowOK {
		cashFlow.Symbol = symbol
		stmt, err := SelectLineItems(cashFlow, ix.Items(models.StatementCashFlow))
		fin.CashFlow = stmt
		if err != nil {
			errs = append(errs, err)
		}
	}

	return fin, errors.Join(errs...)
}

// GetQuote returns the live price header for a listed symbol, annotated
// with the exchange session state.
func (a *Aggregator) GetQuote(ctx context.Context, ix models.Index, symbol string) (*models.Quote, error) {
	q, err := a.quotes.GetQuote(ctx, ix.ProviderSymbol(symbol))
	if err != nil {
		return nil, err
	}
	q.Symbol = symbol
	q.MarketStatus = utils.HoursFor(ix.ID).StatusAt(q.FetchedAt)
	return q, nil
}

// GetHeadlines returns recent headlines for a listed symbol.
func (a *Aggregator) GetHeadlines(ctx context.Context, ix models.Index, symbol string, limit int) ([]models.Headline, error) {
	return a.news.GetHeadlines(ctx, ix.ProviderSymbol(symbol), limit)
}
