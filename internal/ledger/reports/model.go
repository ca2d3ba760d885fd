package reports

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-erp/atlas-erp/internal/ledger/accounts"
)

// AccountBalance models a ledger account with aggregated period balances.
// Opening carries the debit-positive net of all prior periods; Debit and
// Credit are the movement inside the reporting period.
type AccountBalance struct {
	AccountID int64                `json:"accountId"`
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	Type      accounts.AccountType `json:"type"`
	SubType   *string              `json:"subType,omitempty"`
	Opening   decimal.Decimal      `json:"opening"`
	Debit     decimal.Decimal      `json:"debit"`
	Credit    decimal.Decimal      `json:"credit"`
}

// Closing computes the debit-positive closing balance.
func (a AccountBalance) Closing() decimal.Decimal {
	return a.Opening.Add(a.Debit).Sub(a.Credit)
}

// Natural returns the closing balance signed by the account's normal side,
// so liabilities and revenue read positive when in credit.
func (a AccountBalance) Natural() decimal.Decimal {
	closing := a.Closing()
	if (accounts.Account{Type: a.Type}).NormalBalance() == accounts.SideCredit {
		return closing.Neg()
	}
	return closing
}

// GroupKey returns a key used for grouping trial balance rows.
func (a AccountBalance) GroupKey() string {
	if idx := strings.Index(a.Code, "."); idx > 0 {
		return a.Code[:idx]
	}
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}

// GeneralLedgerLine is one posted movement against an account.
type GeneralLedgerLine struct {
	EntryID     int64           `json:"entryId"`
	Number      int64           `json:"number"`
	EntryDate   time.Time       `json:"entryDate"`
	Description string          `json:"description"`
	Side        accounts.Side   `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	Memo        string          `json:"memo,omitempty"`
	Running     decimal.Decimal `json:"running"`
}

// GeneralLedger is the posted activity of one account over a date range.
type GeneralLedger struct {
	AccountID int64               `json:"accountId"`
	Code      string              `json:"code"`
	Name      string              `json:"name"`
	Opening   decimal.Decimal     `json:"opening"`
	Closing   decimal.Decimal     `json:"closing"`
	Lines     []GeneralLedgerLine `json:"lines"`
}
