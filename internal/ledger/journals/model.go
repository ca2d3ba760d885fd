package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlas-erp/atlas-erp/internal/ledger/accounts"
)

// EntryStatus enumerates journal lifecycle values. Posted entries are
// immutable; corrections go through reversal entries.
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "DRAFT"
	EntryStatusPosted   EntryStatus = "POSTED"
	EntryStatusRejected EntryStatus = "REJECTED"
)

// JournalEntry captures posting metadata for a balanced set of lines.
type JournalEntry struct {
	ID            int64         `json:"id"`
	TenantID      int64         `json:"tenantId"`
	Number        int64         `json:"number"`
	Description   string        `json:"description"`
	EntryDate     time.Time     `json:"entryDate"`
	Status        EntryStatus   `json:"status"`
	PeriodID      *int64        `json:"periodId,omitempty"`
	PostedBy      *string       `json:"postedBy,omitempty"`
	PostedAt      *time.Time    `json:"postedAt,omitempty"`
	ReversesID    *int64        `json:"reversesEntryId,omitempty"`
	Reference     *uuid.UUID    `json:"reference,omitempty"`
	ReferenceType string        `json:"referenceType,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Lines         []JournalLine `json:"lines,omitempty"`
}

// JournalLine stores a single-sided amount against an account. Amounts are
// always strictly positive; the side carries the sign.
type JournalLine struct {
	ID        int64           `json:"id"`
	EntryID   int64           `json:"entryId"`
	AccountID int64           `json:"accountId"`
	Side      accounts.Side   `json:"side"`
	Amount    decimal.Decimal `json:"amount"`
	Memo      string          `json:"memo,omitempty"`
	Position  int             `json:"position"`
}

// SignedDelta returns the debit and credit contribution of the line.
func (l JournalLine) SignedDelta() (debit, credit decimal.Decimal) {
	if l.Side == accounts.SideDebit {
		return l.Amount, decimal.Zero
	}
	return decimal.Zero, l.Amount
}

// reverseLines mirrors each line onto the opposite side, preserving order.
func reverseLines(lines []JournalLine) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		side := accounts.SideDebit
		if line.Side == accounts.SideDebit {
			side = accounts.SideCredit
		}
		out = append(out, JournalLine{
			AccountID: line.AccountID,
			Side:      side,
			Amount:    line.Amount,
			Memo:      line.Memo,
			Position:  line.Position,
		})
	}
	return out
}
