package datasource

import (
	"errors"
	"strings"
	"testing"

	"github.com/seenimoa/indexdash/pkg/models"
)

func ptr(v float64) *float64 { return &v }

func fullIncome() models.Statement {
	return models.Statement{
		Kind:    models.StatementIncome,
		Symbol:  "AAPL",
		Periods: []string{"2023-09-30", "2022-09-30"},
		Rows: []models.StatementRow{
			{Name: "TotalRevenue", Values: []*float64{ptr(383e9), ptr(394e9)}},
			{Name: "CostOfRevenue", Values: []*float64{ptr(214e9), ptr(223e9)}},
			{Name: "NetIncome", Values: []*float64{ptr(97e9), ptr(99.8e9)}},
			{Name: "DilutedEPS", Values: []*float64{ptr(6.13), nil}},
		},
	}
}

func TestSelectLineItems(t *testing.T) {
	stmt, err := SelectLineItems(fullIncome(), []string{"NetIncome", "TotalRevenue"})
	if err != nil {
		t.Fatalf("SelectLineItems: %v", err)
	}
	if got := strings.Join(rowNames(&stmt), ","); got != "NetIncome,TotalRevenue" {
		t.Errorf("labels = %q, want allow-list order", got)
	}
	if len(stmt.Periods) != 2 || stmt.Kind != models.StatementIncome {
		t.Errorf("statement = %+v", stmt)
	}
	if len(stmt.MissingLabels()) != 0 {
		t.Errorf("unexpected missing rows: %v", stmt.MissingLabels())
	}
}

func TestSelectLineItemsMissing(t *testing.T) {
	stmt, err := SelectLineItems(fullIncome(), []string{"TotalRevenue", "EBIT", "DilutedEPS", "DilutedAverageShares"})

	var e *Error
	if !errors.As(err, &e) || e.Kind != KindMissingField {
		t.Fatalf("expected missing field error, got %v", err)
	}
	if got := strings.Join(e.Fields, ","); got != "EBIT,DilutedAverageShares" {
		t.Errorf("missing fields = %q", got)
	}
	if !strings.HasPrefix(e.Error(), "Income statement for AAPL") {
		t.Errorf("error = %q", e.Error())
	}

	// The statement is still usable and keeps every requested row.
	if got := strings.Join(rowNames(&stmt), ","); got != "TotalRevenue,EBIT,DilutedEPS,DilutedAverageShares" {
		t.Errorf("labels = %q", got)
	}
	ebit, _ := stmt.Row("EBIT")
	if !ebit.Missing || len(ebit.Values) != 2 || ebit.Values[0] != nil {
		t.Errorf("EBIT row = %+v", ebit)
	}
	eps, _ := stmt.Row("DilutedEPS")
	if eps.Missing {
		t.Error("a row with some unreported periods is not missing")
	}
}

func TestSelectLineItemsEmptyStatement(t *testing.T) {
	empty := models.Statement{Kind: models.StatementCashFlow, Symbol: "ZZZZ"}
	stmt, err := SelectLineItems(empty, []string{"FreeCashFlow"})
	if KindOf(err) != KindMissingField {
		t.Fatalf("expected missing field error, got %v", err)
	}
	if len(stmt.Rows) != 1 || len(stmt.Rows[0].Values) != 0 {
		t.Errorf("rows = %+v", stmt.Rows)
	}
}

// rowNames returns the statement's row labels in order.
func rowNames(stmt *models.Statement) []string {
	out := make([]string, len(stmt.Rows))
	for i, r := range stmt.Rows {
		out[i] = r.Name
	}
	return out
}
