package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/indexdash/internal/dashboard"
	"github.com/seenimoa/indexdash/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

func sampleSeries(n int) models.PriceSeries {
	s := models.PriceSeries{Symbol: "AAPL", Currency: "USD", Bars: make([]models.OHLCV, n)}
	t := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := range s.Bars {
		s.Bars[i] = models.OHLCV{Timestamp: t.AddDate(0, 0, i), Close: 125 + float64(i%7) - float64(i)*0.1}
	}
	return s
}

func num(v float64) *float64 { return &v }

func sampleView() *dashboard.View {
	sp, _ := models.LookupIndex("sp500")
	series := sampleSeries(20)
	r := models.DateRange{Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)}
	return &dashboard.View{
		State:     dashboard.Rendered,
		Index:     sp,
		Symbols:   []string{"MMM", "AAPL"},
		Ticker:    "AAPL",
		StartText: "01/01/2023",
		EndText:   "31/01/2023",
		Range:     &r,
		Messages:  []dashboard.Message{{Level: dashboard.LevelWarning, Text: "Income statement for AAPL is missing: EBIT"}},
		Series:    &series,
		Company: &models.CompanyInfo{Symbol: "AAPL", Fields: map[string]any{
			"longName": "Apple Inc.", "sector": "Technology", "industry": "Consumer Electronics", "marketCap": 2.95e12,
		}},
		Income: &models.Statement{
			Kind:    models.StatementIncome,
			Periods: []string{"2023-09-30", "2022-09-30"},
			Rows: []models.StatementRow{
				{Name: "TotalRevenue", Values: []*float64{num(383285000000), num(394328000000)}},
				{Name: "EBIT", Values: []*float64{nil, nil}, Missing: true},
				{Name: "DilutedEPS", Values: []*float64{num(6.13), num(6.11)}},
			},
		},
		CashFlow: &models.Statement{
			Kind:    models.StatementCashFlow,
			Periods: []string{"2023-09-30"},
			Rows:    []models.StatementRow{{Name: "FreeCashFlow", Values: []*float64{num(99584000000)}}},
		},
		Quote:       &models.Quote{Symbol: "AAPL", PriceText: "189.50", ChangePct: -0.42, ChangeText: "-0.42%", MarketStatus: "CLOSED"},
		Headlines:   []models.Headline{{Title: "Apple <ships>", Link: "https://example.com/a", Published: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}},
		GeneratedAt: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}
}

// ════════════════════════════════════════════════════════════════════
// Charts
// ════════════════════════════════════════════════════════════════════

func TestPriceChart(t *testing.T) {
	svg := PriceChart(sampleSeries(30), "AAPL", DefaultChartConfig())
	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("expected a complete SVG document")
	}
	for _, want := range []string{"AAPL Close Price", ">Date<", ">Close Price<", "<path"} {
		if !strings.Contains(svg, want) {
			t.Errorf("chart missing %q", want)
		}
	}
	if !strings.Contains(svg, "2023-01-03") {
		t.Error("expected the first date as an x-axis label")
	}
}

func TestPriceChart_Empty(t *testing.T) {
	svg := PriceChart(models.PriceSeries{}, "AAPL", ChartConfig{})
	if !strings.Contains(svg, "No data available") {
		t.Error("expected placeholder for empty series")
	}
}

func TestLineChart_Basic(t *testing.T) {
	series := []LineChartSeries{
		{Name: "A", Values: []float64{1, 2, 3, 4, 5}},
		{Name: "B", Values: []float64{5, 4, 3, 2, 1}, Color: "#ff0000"},
	}
	svg := LineChart(series, []string{"a", "b", "c", "d", "e"}, DefaultChartConfig())
	if strings.Count(svg, "<path") != 2 {
		t.Errorf("expected 2 paths, got %d", strings.Count(svg, "<path"))
	}
	if !strings.Contains(svg, "#ff0000") {
		t.Error("custom color not used")
	}
	if !strings.Contains(svg, ">A<") || !strings.Contains(svg, ">B<") {
		t.Error("legend expected for multiple series")
	}
}

func TestLineChart_Empty(t *testing.T) {
	if svg := LineChart(nil, nil, ChartConfig{}); !strings.Contains(svg, "No data") {
		t.Error("expected empty chart placeholder")
	}
	if svg := LineChart([]LineChartSeries{{Name: "x"}}, nil, ChartConfig{}); !strings.Contains(svg, "No data points") {
		t.Error("expected placeholder for series without points")
	}
}

func TestLineChart_SinglePoint(t *testing.T) {
	svg := LineChart([]LineChartSeries{{Name: "x", Values: []float64{42}}}, []string{"2023-01-03"}, DefaultChartConfig())
	if strings.Contains(svg, "NaN") || strings.Contains(svg, "Inf") {
		t.Error("single point must not divide by zero")
	}
	if !strings.Contains(svg, "<circle") {
		t.Error("expected a marker for a single point")
	}
}

func TestLineChart_NaN(t *testing.T) {
	svg := LineChart([]LineChartSeries{{Name: "x", Values: []float64{1, math.NaN(), 3}}}, nil, DefaultChartConfig())
	if strings.Contains(svg, "NaN") {
		t.Error("NaN values must be skipped")
	}
}

func TestEscapeXML(t *testing.T) {
	tests := []struct{ in, want string }{
		{"S&P 500", "S&amp;P 500"},
		{`<a href="x">`, "&lt;a href=&quot;x&quot;&gt;"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := escapeXML(tt.in); got != tt.want {
			t.Errorf("escapeXML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlotArea(t *testing.T) {
	x, y, w, h := DefaultChartConfig().plotArea()
	if x != 80 || y != 40 || w != 690 || h != 300 {
		t.Errorf("plotArea = %d,%d,%d,%d", x, y, w, h)
	}
}

func TestEmptySVG(t *testing.T) {
	svg := emptySVG(ChartConfig{}, "nothing")
	if !strings.Contains(svg, `width="400"`) || !strings.Contains(svg, "nothing") {
		t.Errorf("emptySVG = %s", svg)
	}
}

// ════════════════════════════════════════════════════════════════════
// Page data
// ════════════════════════════════════════════════════════════════════

func TestBuildPageData(t *testing.T) {
	d := BuildPageData(sampleView(), DefaultChartConfig())

	if !d.ShowChart || d.ChartHeading != "Historical Stock Prices for AAPL" {
		t.Errorf("chart = %v %q", d.ShowChart, d.ChartHeading)
	}
	if len(d.Indices) != 2 || !d.Indices[0].Checked || d.Indices[1].Checked {
		t.Errorf("indices = %+v", d.Indices)
	}
	if d.Company == nil || d.Company.Heading != "Apple Inc. (AAPL)" {
		t.Fatalf("company = %+v", d.Company)
	}
	if d.Company.MarketCap != "$2.95T (2,950,000,000,000)" {
		t.Errorf("market cap = %q", d.Company.MarketCap)
	}
	if d.Quote == nil || d.Quote.Change != "-0.42%" || d.Quote.ChangeClass != "negative" {
		t.Errorf("quote = %+v", d.Quote)
	}

	if len(d.Statements) != 2 {
		t.Fatalf("statements = %d", len(d.Statements))
	}
	income := d.Statements[0]
	if income.Title != "Income Statement" || d.Statements[1].Title != "Metrics" {
		t.Errorf("titles = %q, %q", income.Title, d.Statements[1].Title)
	}
	if got := income.Rows[0].Values[0]; got != "383,285,000,000" {
		t.Errorf("revenue cell = %q", got)
	}
	if ebit := income.Rows[1]; !ebit.Missing || ebit.Values[0] != "N/A" {
		t.Errorf("EBIT row = %+v", ebit)
	}
	if eps := income.Rows[2].Values[0]; eps != "6.13" {
		t.Errorf("EPS cell = %q", eps)
	}
	if d.Headlines[0].Published != "02 Jan 2024" {
		t.Errorf("headline date = %q", d.Headlines[0].Published)
	}
}

func TestBuildPageData_NiftyMarketCap(t *testing.T) {
	nifty, _ := models.LookupIndex("nifty")
	v := &dashboard.View{
		Index:  nifty,
		Ticker: "RELIANCE.NS",
		Company: &models.CompanyInfo{Symbol: "RELIANCE.NS", Fields: map[string]any{
			"shortName": "RELIANCE INDUSTRIES", "marketCap": 192734500000.0,
		}},
		Quote: &models.Quote{Symbol: "RELIANCE.NS", Price: 284750.5, PriceText: "284,750.50"},
	}
	d := BuildPageData(v, DefaultChartConfig())
	if d.Quote == nil || d.Quote.Price != "₹2,84,750.50" {
		t.Errorf("quote price = %+v", d.Quote)
	}
	if d.ShowChart {
		t.Error("no series, no chart")
	}
	if d.Company.Heading != "RELIANCE INDUSTRIES (RELIANCE.NS)" {
		t.Errorf("heading = %q", d.Company.Heading)
	}
	if !strings.HasPrefix(d.Company.MarketCap, "₹19,273.45 Cr") {
		t.Errorf("market cap = %q", d.Company.MarketCap)
	}
	if d.Company.Sector != "N/A" {
		t.Errorf("sector = %q", d.Company.Sector)
	}
}

// ════════════════════════════════════════════════════════════════════
// HTML and text renderers
// ════════════════════════════════════════════════════════════════════

func TestRenderPage(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	var buf bytes.Buffer
	if err := r.RenderPage(&buf, sampleView()); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"<!DOCTYPE html>",
		"Start Date (dd/mm/yyyy)",
		"End Date (dd/mm/yyyy)",
		`value="sp500" checked`,
		`<option value="AAPL">`,
		"Historical Stock Prices for AAPL",
		"<svg",
		"Apple Inc. (AAPL)",
		"Sector: Technology",
		"Industry: Consumer Electronics",
		"<h3>Income Statement</h3>",
		"<h3>Metrics</h3>",
		`class="missing"`,
		"Apple &lt;ships&gt;",
		"Income statement for AAPL is missing: EBIT",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(html, "&lt;svg") {
		t.Error("chart SVG must not be escaped")
	}
}

func TestRenderPanels(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	v := &dashboard.View{
		State:     dashboard.AwaitingDates,
		Index:     models.Indices[1],
		Symbols:   []string{"TCS.NS"},
		Ticker:    "TCS.NS",
		StartText: "31/02/2023",
		Messages:  []dashboard.Message{{Level: dashboard.LevelError, Text: "Invalid date format. Use dd/mm/yyyy."}},
	}
	p, err := r.RenderPanels(v)
	if err != nil {
		t.Fatalf("RenderPanels: %v", err)
	}
	if !strings.Contains(p.Sidebar, "Invalid date format. Use dd/mm/yyyy.") || !strings.Contains(p.Sidebar, `value="31/02/2023"`) {
		t.Errorf("sidebar = %s", p.Sidebar)
	}
	if strings.Contains(p.Main, "<svg") || strings.Contains(p.Main, "<table") {
		t.Errorf("main should be empty before dates parse: %s", p.Main)
	}
	if strings.Contains(p.Sidebar, "<!DOCTYPE") {
		t.Error("panels are fragments, not pages")
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, sampleView(), TextOptions{}); err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"S&P 500 / AAPL (01/01/2023 to 31/01/2023)",
		"[WARNING] Income statement for AAPL is missing: EBIT",
		"Historical Stock Prices for AAPL",
		"First",
		"Apple Inc. (AAPL)",
		"Market Cap: $2.95T",
		"Income Statement",
		"Metrics",
		"383,285,000,000",
		"N/A",
		"Apple <ships>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q", want)
		}
	}
}
