package reports

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atlas-erp/atlas-erp/internal/ledger/accounts"
	_ "github.com/atlas-erp/atlas-erp/testing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuildTrialBalance(t *testing.T) {
	balances := []AccountBalance{
		{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, Opening: dec("1000"), Debit: dec("200"), Credit: dec("150")},
		{Code: "1001", Name: "Bank", Type: accounts.AccountTypeAsset, Opening: dec("500"), Debit: dec("100"), Credit: dec("50")},
		{Code: "2000", Name: "Accounts Payable", Type: accounts.AccountTypeLiability, Debit: dec("10"), Credit: dec("400")},
	}

	tb := BuildTrialBalance(balances)
	if len(tb.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(tb.Groups))
	}
	if !tb.TotalDebit.Equal(dec("310")) {
		t.Fatalf("unexpected total debit: %v", tb.TotalDebit)
	}
	if !tb.TotalCredit.Equal(dec("600")) {
		t.Fatalf("unexpected total credit: %v", tb.TotalCredit)
	}
	if !tb.TotalOpening.Equal(dec("1500")) {
		t.Fatalf("unexpected total opening: %v", tb.TotalOpening)
	}
	if !tb.TotalClosing.Equal(dec("1210")) {
		t.Fatalf("unexpected closing total: %v", tb.TotalClosing)
	}
	if tb.Balanced {
		t.Fatal("sample data is intentionally unbalanced")
	}
}

func TestBuildTrialBalanceBalancedFlag(t *testing.T) {
	balances := []AccountBalance{
		{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, Debit: dec("150"), Credit: dec("0")},
		{Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, Debit: dec("0"), Credit: dec("150")},
	}
	tb := BuildTrialBalance(balances)
	if !tb.Balanced {
		t.Fatal("expected balanced trial balance")
	}
}

func TestBuildProfitAndLoss(t *testing.T) {
	balances := []AccountBalance{
		{Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, Credit: dec("1200")},
		{Code: "5000", Name: "COGS", Type: accounts.AccountTypeExpense, Debit: dec("300")},
		{Code: "5100", Name: "Marketing", Type: accounts.AccountTypeExpense, Debit: dec("200")},
		{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, Debit: dec("9999")},
	}

	pl := BuildProfitAndLoss(balances)
	if !pl.Revenue.Total.Equal(dec("1200")) {
		t.Fatalf("expected revenue total 1200 got %v", pl.Revenue.Total)
	}
	if !pl.Expense.Total.Equal(dec("500")) {
		t.Fatalf("expected expense total 500 got %v", pl.Expense.Total)
	}
	if !pl.NetIncome.Equal(dec("700")) {
		t.Fatalf("expected net income 700 got %v", pl.NetIncome)
	}
	if len(pl.Revenue.Accounts) != 1 || len(pl.Expense.Accounts) != 2 {
		t.Fatalf("balance sheet accounts leaked into P&L")
	}
}

func TestBuildBalanceSheet(t *testing.T) {
	balances := []AccountBalance{
		{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, Debit: dec("500"), Credit: dec("100")},
		{Code: "2000", Name: "AP", Type: accounts.AccountTypeLiability, Credit: dec("150")},
		{Code: "3000", Name: "Owner Capital", Type: accounts.AccountTypeEquity, Credit: dec("200")},
		{Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, Credit: dec("100")},
		{Code: "5000", Name: "Rent", Type: accounts.AccountTypeExpense, Debit: dec("50")},
	}

	bs := BuildBalanceSheet(balances)
	if !bs.Assets.Total.Equal(dec("400")) {
		t.Fatalf("expected assets 400 got %v", bs.Assets.Total)
	}
	if !bs.Liabilities.Total.Equal(dec("150")) {
		t.Fatalf("expected liabilities 150 got %v", bs.Liabilities.Total)
	}
	if !bs.Equity.Total.Equal(dec("200")) {
		t.Fatalf("expected equity 200 got %v", bs.Equity.Total)
	}
	if !bs.CurrentEarnings.Equal(dec("50")) {
		t.Fatalf("expected current earnings 50 got %v", bs.CurrentEarnings)
	}
	// Assets must equal liabilities + equity + current earnings.
	if !bs.TotalLiabilitiesAndEquity.Equal(bs.Assets.Total) {
		t.Fatalf("sheet does not tie out: assets %v vs L+E %v", bs.Assets.Total, bs.TotalLiabilitiesAndEquity)
	}
}

func TestBuildCashFlow(t *testing.T) {
	cash := "CASH"
	balances := []AccountBalance{
		{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, SubType: &cash, Opening: dec("100"), Debit: dec("300"), Credit: dec("120")},
		{Code: "1010", Name: "Bank", Type: accounts.AccountTypeAsset, SubType: &cash, Debit: dec("50"), Credit: dec("80")},
	}

	cf := BuildCashFlow(balances)
	if !cf.TotalInflow.Equal(dec("350")) {
		t.Fatalf("expected inflow 350 got %v", cf.TotalInflow)
	}
	if !cf.TotalOutflow.Equal(dec("200")) {
		t.Fatalf("expected outflow 200 got %v", cf.TotalOutflow)
	}
	if !cf.NetChange.Equal(dec("150")) {
		t.Fatalf("expected net change 150 got %v", cf.NetChange)
	}
	if !cf.Closing.Equal(dec("250")) {
		t.Fatalf("expected closing 250 got %v", cf.Closing)
	}
}
