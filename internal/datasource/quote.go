package datasource

import (
	"context"
	"fmt"
	"time"

	yfgo "github.com/komsit37/yf-go"

	"github.com/seenimoa/indexdash/pkg/models"
)

// priceFields is the subset of the provider's price module used for the
// live quote header.
type priceFields struct {
	name      string
	priceFmt  string
	price     *float64
	changeFmt string
	changeRaw *float64 // fraction, 0.0123 for +1.23%
}

// Quotes fetches the live price header through the yf-go client.
type Quotes struct {
	fetch   func(ctx context.Context, symbol string) (priceFields, error)
	timeout time.Duration
	now     func() time.Time
}

// NewQuotes creates a quote source; each lookup is bounded by timeout.
func NewQuotes(timeout time.Duration) *Quotes {
	client := yfgo.NewClient()
	return &Quotes{
		timeout: timeout,
		now:     time.Now,
		fetch: func(ctx context.Context, symbol string) (priceFields, error) {
			res, err := client.QuoteSummaryTyped(ctx, symbol, []yfgo.QuoteSummaryModule{yfgo.ModulePrice})
			if err != nil {
				return priceFields{}, err
			}
			if res.Price == nil {
				return priceFields{}, fmt.Errorf("%w: no price for %s", ErrTickerNotFound, symbol)
			}
			p := res.Price
			f := priceFields{
				name:      p.LongName,
				priceFmt:  p.RegularMarketPrice.Fmt,
				price:     p.RegularMarketPrice.Raw,
				changeFmt: p.RegularMarketChangePercent.Fmt,
				changeRaw: p.RegularMarketChangePercent.Raw,
			}
			if f.name == "" {
				f.name = p.ShortName
			}
			return f, nil
		},
	}
}

// GetQuote returns the latest price and day change for symbol.
func (q *Quotes) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	op := "live quote for " + symbol
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	f, err := q.fetch(ctx, symbol)
	if err != nil {
		return nil, newError(KindNetwork, op, err)
	}
	if f.price == nil && f.priceFmt == "" {
		return nil, missingFields(op, "regularMarketPrice")
	}
	return buildQuote(symbol, f, q.now()), nil
}

func buildQuote(symbol string, f priceFields, at time.Time) *models.Quote {
	quote := &models.Quote{Symbol: symbol, Name: f.name, PriceText: f.priceFmt, FetchedAt: at}
	if f.price != nil {
		quote.Price = *f.price
		if quote.PriceText == "" {
			quote.PriceText = fmt.Sprintf("%.2f", *f.price)
		}
	}
	quote.ChangeText = f.changeFmt
	if f.changeRaw != nil {
		quote.ChangePct = *f.changeRaw * 100
		if quote.ChangeText == "" {
			quote.ChangeText = fmt.Sprintf("%.2f%%", quote.ChangePct)
		}
	}
	return quote
}
