package models

import "strings"

// IndexID identifies one of the supported stock indices.
type IndexID string

const (
	IndexSP500 IndexID = "sp500"
	IndexNifty IndexID = "nifty"
)

// SymbolSourceKind describes where an index's constituent list comes from.
type SymbolSourceKind string

const (
	SourceWikipediaTable SymbolSourceKind = "wikipedia_table"
	SourceSpreadsheet    SymbolSourceKind = "spreadsheet"
)

// Index is one row of the index configuration table: how its symbols are
// listed, which market suffix they carry and which statement rows are shown.
type Index struct {
	ID            IndexID          `json:"id"`
	Name          string           `json:"name"` // label shown on the index selector
	Source        SymbolSourceKind `json:"source"`
	SymbolSuffix  string           `json:"symbol_suffix,omitempty"`
	Currency      string           `json:"currency"`
	IncomeItems   []string         `json:"income_items"`
	CashFlowItems []string         `json:"cash_flow_items"`
}

// Indices is the ordered index table. The first entry is the selector default.
var Indices = []Index{
	{
		ID:       IndexSP500,
		Name:     "S&P 500",
		Source:   SourceWikipediaTable,
		Currency: "USD",
		IncomeItems: []string{
			"TotalRevenue",
			"CostOfRevenue",
			"EBIT",
			"NetIncome",
			"DilutedAverageShares",
			"NetIncomeFromContinuingOperationNetMinorityInterest",
			"NetIncomeCommonStockholders",
			"NetIncomeIncludingNoncontrollingInterests",
			"DilutedEPS",
		},
		CashFlowItems: []string{
			"CashFlowFromContinuingFinancingActivities",
			"CashFlowFromContinuingInvestingActivities",
			"CashFlowFromContinuingOperatingActivities",
			"FreeCashFlow",
		},
	},
	{
		ID:           IndexNifty,
		Name:         "Nifty",
		Source:       SourceSpreadsheet,
		SymbolSuffix: ".NS",
		Currency:     "INR",
		IncomeItems: []string{
			"TotalRevenue",
			"NetIncome",
			"DilutedAverageShares",
			"NetIncomeFromContinuingOperationNetMinorityInterest",
			"NetIncomeCommonStockholders",
			"NetIncomeIncludingNoncontrollingInterests",
			"DilutedEPS",
		},
		CashFlowItems: []string{
			"FinancingCashFlow",
			"InvestingCashFlow",
			"OperatingCashFlow",
			"FreeCashFlow",
		},
	},
}

// LookupIndex finds an index by id or by its display name, ignoring case.
func LookupIndex(key string) (Index, bool) {
	key = strings.TrimSpace(key)
	for _, ix := range Indices {
		if strings.EqualFold(string(ix.ID), key) || strings.EqualFold(ix.Name, key) {
			return ix, true
		}
	}
	return Index{}, false
}

// Items returns the allow-listed row labels for the given statement kind.
func (ix Index) Items(kind StatementKind) []string {
	if kind == StatementCashFlow {
		return ix.CashFlowItems
	}
	return ix.IncomeItems
}

// ProviderSymbol maps a listed symbol to the form the market data provider
// expects. Share-class dots in suffix-less listings become dashes (BRK.B -> BRK-B).
func (ix Index) ProviderSymbol(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if ix.SymbolSuffix != "" {
		return symbol
	}
	return strings.ReplaceAll(symbol, ".", "-")
}
