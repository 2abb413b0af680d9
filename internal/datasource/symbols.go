package datasource

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/indexdash/pkg/models"
	"github.com/seenimoa/indexdash/pkg/utils"
)

// symbolHeader is the column holding ticker symbols in both constituent lists.
const symbolHeader = "Symbol"

// SymbolSource lists the constituent symbols of one index.
type SymbolSource interface {
	Symbols(ctx context.Context) ([]string, error)
}

// Wikipedia reads the Symbol column of the first table on a Wikipedia page.
type Wikipedia struct {
	http *HTTPClient
	url  string
	op   string
}

// NewWikipedia creates a source for the constituents table at url.
func NewWikipedia(h *HTTPClient, url, indexName string) *Wikipedia {
	return &Wikipedia{http: h, url: url, op: indexName + " symbol list"}
}

// Symbols returns the Symbol column in page order, duplicates kept.
func (w *Wikipedia) Symbols(ctx context.Context) ([]string, error) {
	body, _, err := w.http.get(ctx, w.url, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, newError(KindNetwork, w.op, err)
	}
	defer body.Close()

	return parseSymbolTable(body, w.op)
}

// parseSymbolTable extracts the Symbol column from the first <table>.
func parseSymbolTable(r io.Reader, op string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, newError(KindParse, op, err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, missingFields(op, "table")
	}

	col, headerSeen := -1, false
	var symbols []string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		if !headerSeen {
			if tr.ChildrenFiltered("th").Length() == 0 {
				return
			}
			headerSeen = true
			cells.EachWithBreak(func(i int, c *goquery.Selection) bool {
				if strings.TrimSpace(c.Text()) == symbolHeader {
					col = i
					return false
				}
				return true
			})
			return
		}
		if col < 0 || cells.Length() <= col {
			return
		}
		if s := strings.TrimSpace(cells.Eq(col).Text()); s != "" {
			symbols = append(symbols, s)
		}
	})

	if col < 0 {
		return nil, missingFields(op, symbolHeader)
	}
	return symbols, nil
}

// Spreadsheet reads the Symbol column of the first sheet of a remote
// workbook and appends the market suffix to each symbol.
type Spreadsheet struct {
	http   *HTTPClient
	url    string
	suffix string
	op     string
}

// NewSpreadsheet creates a source for the workbook at url.
func NewSpreadsheet(h *HTTPClient, url, suffix, indexName string) *Spreadsheet {
	return &Spreadsheet{http: h, url: url, suffix: suffix, op: indexName + " symbol list"}
}

// Symbols returns every non-blank Symbol cell with the suffix appended once.
func (s *Spreadsheet) Symbols(ctx context.Context) ([]string, error) {
	body, _, err := s.http.get(ctx, s.url, map[string]string{
		"Accept": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*",
	})
	if err != nil {
		return nil, newError(KindNetwork, s.op, err)
	}
	defer body.Close()

	return parseSymbolSheet(body, s.suffix, s.op)
}

func parseSymbolSheet(r io.Reader, suffix, op string) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, newError(KindParse, op, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, missingFields(op, "worksheet")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, newError(KindParse, op, fmt.Errorf("sheet %q: %w", sheets[0], err))
	}
	if len(rows) == 0 {
		return nil, missingFields(op, symbolHeader)
	}

	col := -1
	for i, h := range rows[0] {
		if strings.TrimSpace(h) == symbolHeader {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, missingFields(op, symbolHeader)
	}

	symbols := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) <= col {
			continue
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		symbols = append(symbols, utils.WithSuffix(v, suffix))
	}
	return symbols, nil
}

// Symbols dispatches symbol listing to the source configured for each index.
type Symbols struct {
	sources map[models.IndexID]SymbolSource
}

// NewSymbols builds a source per index from the index table. urls maps
// each index to the location of its constituent list.
func NewSymbols(h *HTTPClient, urls map[models.IndexID]string) *Symbols {
	s := &Symbols{sources: make(map[models.IndexID]SymbolSource)}
	for _, ix := range models.Indices {
		url, ok := urls[ix.ID]
		if !ok {
			continue
		}
		switch ix.Source {
		case models.SourceWikipediaTable:
			s.sources[ix.ID] = NewWikipedia(h, url, ix.Name)
		case models.SourceSpreadsheet:
			s.sources[ix.ID] = NewSpreadsheet(h, url, ix.SymbolSuffix, ix.Name)
		}
	}
	return s
}

// NewSymbolsFrom wires explicit sources, one per index.
func NewSymbolsFrom(sources map[models.IndexID]SymbolSource) *Symbols {
	return &Symbols{sources: sources}
}

// ListSymbols returns the constituent symbols of the index.
func (s *Symbols) ListSymbols(ctx context.Context, ix models.Index) ([]string, error) {
	src, ok := s.sources[ix.ID]
	if !ok {
		return nil, missingFields(ix.Name+" symbol list", "source")
	}
	return src.Symbols(ctx)
}
