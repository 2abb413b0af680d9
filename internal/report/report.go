package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"strings"

	"github.com/seenimoa/indexdash/internal/dashboard"
	"github.com/seenimoa/indexdash/pkg/models"
	"github.com/seenimoa/indexdash/pkg/utils"
	"github.com/seenimoa/indexdash/web"
)

// PageTitle is the dashboard heading.
const PageTitle = "Stock Dashboard"

// ════════════════════════════════════════════════════════════════════
// Page data, flattened for template rendering
// ════════════════════════════════════════════════════════════════════

// PageData is the template model for the page and its panels.
type PageData struct {
	Title       string
	State       string
	GeneratedAt string

	// Sidebar
	Indices   []IndexOption
	Symbols   []string
	Ticker    string
	StartText string
	EndText   string
	Messages  []dashboard.Message

	// Main
	ShowChart    bool
	ChartHeading string
	ChartSVG     template.HTML
	Company      *CompanyPanel
	Quote        *QuotePanel
	Statements   []StatementTable
	Headlines    []HeadlineItem
	NewsNote     string
}

// IndexOption is one radio button of the index selector.
type IndexOption struct {
	ID      models.IndexID
	Name    string
	Checked bool
}

// CompanyPanel holds the company lines shown under the chart.
type CompanyPanel struct {
	Heading   string // "<longName> (<ticker>)"
	Sector    string
	Industry  string
	MarketCap string
}

// QuotePanel is the live price header.
type QuotePanel struct {
	Price       string
	Change      string
	ChangeClass string // positive, negative or empty
	Status      string
}

// StatementTable is a financial statement ready for display.
type StatementTable struct {
	Title   string
	Periods []string
	Rows    []StatementLine
}

// StatementLine is one row of a StatementTable.
type StatementLine struct {
	Name    string
	Values  []string
	Missing bool
}

// HeadlineItem is one entry of the headlines panel.
type HeadlineItem struct {
	Title     string
	Link      string
	Summary   string
	Published string
}

// BuildPageData flattens a view into the template model.
func BuildPageData(v *dashboard.View, cfg ChartConfig) PageData {
	d := PageData{
		Title:     PageTitle,
		State:     string(v.State),
		Symbols:   v.Symbols,
		Ticker:    v.Ticker,
		StartText: v.StartText,
		EndText:   v.EndText,
		Messages:  v.Messages,
		NewsNote:  v.NewsNote,
	}
	if !v.GeneratedAt.IsZero() {
		d.GeneratedAt = v.GeneratedAt.Format("02 Jan 2006 15:04:05 MST")
	}

	for _, ix := range models.Indices {
		d.Indices = append(d.Indices, IndexOption{ID: ix.ID, Name: ix.Name, Checked: ix.ID == v.Index.ID})
	}

	if v.HasChart() {
		d.ShowChart = true
		d.ChartHeading = "Historical Stock Prices for " + v.Ticker
		// The SVG is built from escaped text only.
		d.ChartSVG = template.HTML(PriceChart(*v.Series, v.Ticker, cfg))
	}

	if v.Company != nil {
		d.Company = buildCompanyPanel(v.Company, v.Ticker, v.Index.Currency)
	}
	if v.Quote != nil {
		d.Quote = buildQuotePanel(v.Quote, v.Index.Currency)
	}
	for _, stmt := range []*models.Statement{v.Income, v.CashFlow} {
		if stmt != nil {
			d.Statements = append(d.Statements, buildStatementTable(stmt))
		}
	}
	for _, h := range v.Headlines {
		item := HeadlineItem{Title: h.Title, Link: h.Link, Summary: h.Summary}
		if !h.Published.IsZero() {
			item.Published = h.Published.Format("02 Jan 2006")
		}
		d.Headlines = append(d.Headlines, item)
	}
	return d
}

func buildCompanyPanel(info *models.CompanyInfo, ticker, currency string) *CompanyPanel {
	p := &CompanyPanel{
		Heading:   fmt.Sprintf("%s (%s)", info.LongName(), ticker),
		Sector:    "N/A",
		Industry:  "N/A",
		MarketCap: "N/A",
	}
	if s, ok := info.Sector(); ok {
		p.Sector = s
	}
	if s, ok := info.Industry(); ok {
		p.Industry = s
	}
	if mc, ok := info.MarketCap(); ok {
		if c, ok := info.Currency(); ok && currency == "" {
			currency = c
		}
		raw := math.Round(mc)
		p.MarketCap = fmt.Sprintf("%s (%s)", utils.FormatMarketCap(mc, currency), utils.FormatStatementValue(&raw))
	}
	return p
}

// buildQuotePanel shows rupee prices with Indian digit grouping.
func buildQuotePanel(q *models.Quote, currency string) *QuotePanel {
	p := &QuotePanel{Price: q.PriceText, Status: q.MarketStatus}
	if strings.EqualFold(currency, "INR") && q.Price > 0 {
		p.Price = utils.FormatINR(q.Price)
	}
	if q.ChangeText != "" {
		p.Change = utils.FormatPct(q.ChangePct)
		switch {
		case q.ChangePct > 0:
			p.ChangeClass = "positive"
		case q.ChangePct < 0:
			p.ChangeClass = "negative"
		}
	}
	return p
}

func buildStatementTable(stmt *models.Statement) StatementTable {
	t := StatementTable{Title: stmt.Kind.Title(), Periods: stmt.Periods}
	for _, row := range stmt.Rows {
		line := StatementLine{Name: row.Name, Missing: row.Missing, Values: make([]string, len(stmt.Periods))}
		for i := range stmt.Periods {
			var v *float64
			if i < len(row.Values) {
				v = row.Values[i]
			}
			line.Values[i] = utils.FormatStatementValue(v)
		}
		t.Rows = append(t.Rows, line)
	}
	return t
}

// ════════════════════════════════════════════════════════════════════
// HTML Renderer
// ════════════════════════════════════════════════════════════════════

// Panels are the two independently replaced regions of the page.
type Panels struct {
	Sidebar string `json:"sidebar"`
	Main    string `json:"main"`
}

// Renderer executes the embedded page templates.
type Renderer struct {
	tmpl  *template.Template
	chart ChartConfig
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	return NewRendererFS(web.TemplatesFS())
}

// NewRendererFS parses every *.html template in fsys.
func NewRendererFS(fsys fs.FS) (*Renderer, error) {
	tmpl, err := template.New("dashboard").ParseFS(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, chart: DefaultChartConfig()}, nil
}

// RenderPage writes the full HTML page for a view.
func (r *Renderer) RenderPage(w io.Writer, v *dashboard.View) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page", BuildPageData(v, r.chart)); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// RenderPanels renders the sidebar and main regions as HTML fragments.
func (r *Renderer) RenderPanels(v *dashboard.View) (Panels, error) {
	data := BuildPageData(v, r.chart)

	var sidebar, main bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&sidebar, "sidebar", data); err != nil {
		return Panels{}, fmt.Errorf("executing sidebar template: %w", err)
	}
	if err := r.tmpl.ExecuteTemplate(&main, "main", data); err != nil {
		return Panels{}, fmt.Errorf("executing main template: %w", err)
	}
	return Panels{Sidebar: sidebar.String(), Main: main.String()}, nil
}
