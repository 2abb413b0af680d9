package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/seenimoa/indexdash/internal/dashboard"
	"github.com/seenimoa/indexdash/pkg/models"
	"github.com/seenimoa/indexdash/pkg/utils"
)

// TextOptions controls the terminal rendition.
type TextOptions struct {
	Color bool
}

// RenderText writes a terminal-friendly rendition of a view: sidebar
// messages, a close-price summary, the company lines and the statements.
func RenderText(w io.Writer, v *dashboard.View, opts TextOptions) error {
	data := BuildPageData(v, ChartConfig{})
	line := strings.Repeat("═", 60)

	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "  %s: %s", data.Title, v.Index.Name)
	if v.Ticker != "" {
		fmt.Fprintf(w, " / %s", v.Ticker)
	}
	if v.Range != nil {
		fmt.Fprintf(w, " (%s to %s)", utils.FormatDMY(v.Range.Start), utils.FormatDMY(v.Range.End))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, line)

	for _, m := range v.Messages {
		fmt.Fprintln(w, messageLine(m, opts.Color))
	}

	if v.HasChart() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold(data.ChartHeading, opts.Color))
		renderSeriesSummary(w, *v.Series, opts)
	}

	if c := data.Company; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold(c.Heading, opts.Color))
		if q := data.Quote; q != nil {
			fmt.Fprintf(w, "  %s %s %s\n", q.Price, colorChange(q, opts.Color), q.Status)
		}
		fmt.Fprintf(w, "  Sector: %s\n", c.Sector)
		fmt.Fprintf(w, "  Industry: %s\n", c.Industry)
		fmt.Fprintf(w, "  Market Cap: %s\n", c.MarketCap)
	}

	for _, st := range data.Statements {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold(st.Title, opts.Color))
		renderStatement(w, st, opts)
	}

	if len(data.Headlines) > 0 || data.NewsNote != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold("Headlines", opts.Color))
		if data.NewsNote != "" {
			fmt.Fprintf(w, "  %s\n", data.NewsNote)
		}
		for _, h := range data.Headlines {
			fmt.Fprintf(w, "  - %s", h.Title)
			if h.Published != "" {
				fmt.Fprintf(w, " (%s)", h.Published)
			}
			fmt.Fprintf(w, "\n    %s\n", h.Link)
		}
	}
	return nil
}

func renderSeriesSummary(w io.Writer, s models.PriceSeries, opts TextOptions) {
	first, last := s.Bars[0], s.Bars[len(s.Bars)-1]
	lo, hi := first, first
	for _, b := range s.Bars {
		if b.Close < lo.Close {
			lo = b
		}
		if b.Close > hi.Close {
			hi = b
		}
	}

	tw := newTable(w, opts)
	tw.AppendHeader(table.Row{"", "Date", "Close"})
	for _, r := range []struct {
		label string
		bar   models.OHLCV
	}{{"First", first}, {"Last", last}, {"Low", lo}, {"High", hi}} {
		tw.AppendRow(table.Row{r.label, r.bar.Timestamp.Format(models.DateLayout), fmt.Sprintf("%.2f", r.bar.Close)})
	}
	tw.AppendFooter(table.Row{"Bars", len(s.Bars), s.Currency})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignRight},
	})
	tw.Render()
}

func renderStatement(w io.Writer, st StatementTable, opts TextOptions) {
	tw := newTable(w, opts)

	hdr := make(table.Row, 0, len(st.Periods)+1)
	hdr = append(hdr, "")
	for _, p := range st.Periods {
		hdr = append(hdr, p)
	}
	tw.AppendHeader(hdr)

	for _, line := range st.Rows {
		row := make(table.Row, 0, len(line.Values)+1)
		name := line.Name
		if line.Missing && opts.Color {
			name = text.Colors{text.Faint}.Sprint(name)
		}
		row = append(row, name)
		for _, v := range line.Values {
			row = append(row, v)
		}
		tw.AppendRow(row)
	}

	cfgs := make([]table.ColumnConfig, 0, len(st.Periods))
	for i := range st.Periods {
		cfgs = append(cfgs, table.ColumnConfig{Number: i + 2, Align: text.AlignRight, AlignHeader: text.AlignRight})
	}
	tw.SetColumnConfigs(cfgs)
	tw.Render()
}

func newTable(w io.Writer, opts TextOptions) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if opts.Color {
		tw.SetStyle(table.StyleColoredDark)
	} else {
		tw.SetStyle(table.StyleLight)
	}
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateRows = false
	return tw
}

func messageLine(m dashboard.Message, color bool) string {
	prefix := strings.ToUpper(string(m.Level))
	if color {
		switch m.Level {
		case dashboard.LevelError:
			prefix = text.Colors{text.FgRed, text.Bold}.Sprint(prefix)
		case dashboard.LevelWarning:
			prefix = text.Colors{text.FgYellow}.Sprint(prefix)
		}
	}
	return fmt.Sprintf("  [%s] %s", prefix, m.Text)
}

func colorChange(q *QuotePanel, color bool) string {
	if !color {
		return q.Change
	}
	switch q.ChangeClass {
	case "positive":
		return text.Colors{text.FgGreen}.Sprint(q.Change)
	case "negative":
		return text.Colors{text.FgRed}.Sprint(q.Change)
	}
	return q.Change
}

func bold(s string, color bool) string {
	if !color {
		return s
	}
	return text.Bold.Sprint(s)
}
