package models

// StatementKind names a financial statement.
type StatementKind string

const (
	StatementIncome   StatementKind = "income"
	StatementCashFlow StatementKind = "cash_flow"
)

// Title is the panel heading for the statement.
func (k StatementKind) Title() string {
	if k == StatementCashFlow {
		return "Metrics"
	}
	return "Income Statement"
}

// StatementRow is one labelled line item across reporting periods.
// Values line up with Statement.Periods; a nil entry has no reported value.
type StatementRow struct {
	Name    string     `json:"name"`
	Values  []*float64 `json:"values"`
	Missing bool       `json:"missing,omitempty"` // requested but absent upstream
}

// Statement is a financial statement: row labels by period-end date,
// newest period first.
type Statement struct {
	Kind    StatementKind  `json:"kind"`
	Symbol  string         `json:"symbol"`
	Periods []string       `json:"periods"`
	Rows    []StatementRow `json:"rows"`
}

// Row returns the row with the given label.
func (s *Statement) Row(name string) (StatementRow, bool) {
	for _, r := range s.Rows {
		if r.Name == name {
			return r, true
		}
	}
	return StatementRow{}, false
}

// MissingLabels returns the labels of rows that were requested but not reported.
func (s *Statement) MissingLabels() []string {
	var out []string
	for _, r := range s.Rows {
		if r.Missing {
			out = append(out, r.Name)
		}
	}
	return out
}

// Financials is everything shown below the price chart for one ticker.
type Financials struct {
	Info     CompanyInfo `json:"info"`
	Income   Statement   `json:"income"`
	CashFlow Statement   `json:"cash_flow"`
}
