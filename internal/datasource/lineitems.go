package datasource

import (
	"github.com/seenimoa/indexdash/pkg/models"
)

// incomeStatementKeys is the full annual income statement as reported by
// the fundamentals timeseries API.
var incomeStatementKeys = []string{
	"TotalRevenue",
	"OperatingRevenue",
	"CostOfRevenue",
	"GrossProfit",
	"OperatingExpense",
	"SellingGeneralAndAdministration",
	"ResearchAndDevelopment",
	"OperatingIncome",
	"NetNonOperatingInterestIncomeExpense",
	"InterestIncomeNonOperating",
	"InterestExpenseNonOperating",
	"OtherIncomeExpense",
	"PretaxIncome",
	"TaxProvision",
	"NetIncomeCommonStockholders",
	"NetIncome",
	"NetIncomeIncludingNoncontrollingInterests",
	"NetIncomeContinuousOperations",
	"MinorityInterests",
	"DilutedNIAvailtoComStockholders",
	"BasicEPS",
	"DilutedEPS",
	"BasicAverageShares",
	"DilutedAverageShares",
	"TotalOperatingIncomeAsReported",
	"TotalExpenses",
	"NetIncomeFromContinuingAndDiscontinuedOperation",
	"NormalizedIncome",
	"InterestIncome",
	"InterestExpense",
	"NetInterestIncome",
	"EBIT",
	"EBITDA",
	"ReconciledCostOfRevenue",
	"ReconciledDepreciation",
	"NetIncomeFromContinuingOperationNetMinorityInterest",
	"NormalizedEBITDA",
	"TaxRateForCalcs",
	"TaxEffectOfUnusualItems",
}

// cashFlowKeys is the full annual cash flow statement.
var cashFlowKeys = []string{
	"FreeCashFlow",
	"RepurchaseOfCapitalStock",
	"RepaymentOfDebt",
	"IssuanceOfDebt",
	"IssuanceOfCapitalStock",
	"CapitalExpenditure",
	"InterestPaidSupplementalData",
	"IncomeTaxPaidSupplementalData",
	"EndCashPosition",
	"BeginningCashPosition",
	"EffectOfExchangeRateChanges",
	"ChangesInCash",
	"FinancingCashFlow",
	"CashFlowFromContinuingFinancingActivities",
	"NetOtherFinancingCharges",
	"CashDividendsPaid",
	"NetCommonStockIssuance",
	"NetIssuancePaymentsOfDebt",
	"InvestingCashFlow",
	"CashFlowFromContinuingInvestingActivities",
	"NetOtherInvestingChanges",
	"NetInvestmentPurchaseAndSale",
	"NetBusinessPurchaseAndSale",
	"NetPPEPurchaseAndSale",
	"OperatingCashFlow",
	"CashFlowFromContinuingOperatingActivities",
	"ChangeInWorkingCapital",
	"StockBasedCompensation",
	"DeferredTax",
	"DepreciationAndAmortization",
	"NetIncomeFromContinuingOperations",
}

// SelectLineItems keeps the named rows of a full statement, in the given
// order. A name the provider did not report still gets a row, marked
// Missing with no values, and the returned error (KindMissingField) lists
// every such name. The returned statement is usable either way.
func SelectLineItems(full models.Statement, names []string) (models.Statement, error) {
	out := models.Statement{
		Kind:    full.Kind,
		Symbol:  full.Symbol,
		Periods: full.Periods,
		Rows:    make([]models.StatementRow, 0, len(names)),
	}

	var missing []string
	for _, name := range names {
		if row, ok := full.Row(name); ok {
			out.Rows = append(out.Rows, row)
			continue
		}
		missing = append(missing, name)
		out.Rows = append(out.Rows, models.StatementRow{
			Name:    name,
			Values:  make([]*float64, len(full.Periods)),
			Missing: true,
		})
	}

	if len(missing) > 0 {
		op := statementOpName(full.Kind) + " for " + full.Symbol
		return out, missingFields(op, missing...)
	}
	return out, nil
}
