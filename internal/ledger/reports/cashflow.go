package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CashFlowAccount summarises the movement of one cash account.
type CashFlowAccount struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	Net     decimal.Decimal `json:"net"`
}

// CashFlow reports the period's movement across accounts flagged with the
// cash sub-type. Debits into cash accounts are inflows, credits outflows.
type CashFlow struct {
	Accounts     []CashFlowAccount `json:"accounts"`
	TotalInflow  decimal.Decimal   `json:"totalInflow"`
	TotalOutflow decimal.Decimal   `json:"totalOutflow"`
	NetChange    decimal.Decimal   `json:"netChange"`
	Opening      decimal.Decimal   `json:"opening"`
	Closing      decimal.Decimal   `json:"closing"`
}

// BuildCashFlow aggregates cash-account balances into a cash-flow statement.
// Callers pass only balances of accounts with the cash sub-type.
func BuildCashFlow(balances []AccountBalance) CashFlow {
	result := CashFlow{}
	for _, acc := range balances {
		row := CashFlowAccount{
			Code:    acc.Code,
			Name:    acc.Name,
			Inflow:  acc.Debit,
			Outflow: acc.Credit,
			Net:     acc.Debit.Sub(acc.Credit),
		}
		result.Accounts = append(result.Accounts, row)
		result.TotalInflow = result.TotalInflow.Add(row.Inflow)
		result.TotalOutflow = result.TotalOutflow.Add(row.Outflow)
		result.Opening = result.Opening.Add(acc.Opening)
	}
	sort.Slice(result.Accounts, func(i, j int) bool { return result.Accounts[i].Code < result.Accounts[j].Code })
	result.NetChange = result.TotalInflow.Sub(result.TotalOutflow)
	result.Closing = result.Opening.Add(result.NetChange)
	return result
}
