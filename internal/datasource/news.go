package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/indexdash/pkg/models"
)

// News reads per-ticker headlines from the provider's RSS feed.
type News struct {
	feedURL string // contains one %s for the symbol
	parser  *gofeed.Parser
}

// NewNews creates a headline source. feedURL must contain a single %s
// where the symbol goes.
func NewNews(h *HTTPClient, feedURL string) *News {
	p := gofeed.NewParser()
	p.Client = h.Client()
	p.UserAgent = h.userAgent
	return &News{feedURL: feedURL, parser: p}
}

// GetHeadlines returns up to limit headlines for symbol, newest first.
// A limit of zero or less returns every item.
func (n *News) GetHeadlines(ctx context.Context, symbol string, limit int) ([]models.Headline, error) {
	op := "headlines for " + symbol
	u := fmt.Sprintf(n.feedURL, url.QueryEscape(symbol))

	feed, err := n.parser.ParseURLWithContext(u, ctx)
	if err != nil {
		var he gofeed.HTTPError
		var ue *url.Error
		if errors.As(err, &he) || errors.As(err, &ue) {
			return nil, newError(KindNetwork, op, err)
		}
		return nil, newError(KindParse, op, err)
	}

	source := strings.TrimSpace(feed.Title)
	headlines := make([]models.Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		h := models.Headline{
			Title:   strings.TrimSpace(item.Title),
			Link:    item.Link,
			Source:  source,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			h.Published = *item.PublishedParsed
		}
		headlines = append(headlines, h)
	}

	sortHeadlinesByDate(headlines)
	if limit > 0 && len(headlines) > limit {
		headlines = headlines[:limit]
	}
	return headlines, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func sortHeadlinesByDate(hs []models.Headline) {
	sort.SliceStable(hs, func(i, j int) bool {
		return hs[i].Published.After(hs[j].Published)
	})
}
