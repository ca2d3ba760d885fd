package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlas-erp/atlas-erp/internal/ledger/accounts"
	"github.com/atlas-erp/atlas-erp/internal/ledger/shared"
)

// LineInput describes one journal line in a create request.
type LineInput struct {
	AccountID int64           `json:"accountId" validate:"required,gt=0"`
	Side      string          `json:"side" validate:"required,oneof=DEBIT CREDIT"`
	Amount    decimal.Decimal `json:"amount"`
	Memo      string          `json:"memo" validate:"max=512"`
}

// CreateEntryRequest is the payload for drafting a journal entry.
type CreateEntryRequest struct {
	Description   string      `json:"description" validate:"required,max=1024"`
	EntryDate     string      `json:"entryDate" validate:"required,datetime=2006-01-02"`
	Reference     *uuid.UUID  `json:"reference"`
	ReferenceType string      `json:"referenceType" validate:"omitempty,max=50"`
	Lines         []LineInput `json:"lines" validate:"required,min=2,dive"`
}

// Validate enforces the balance invariant on top of the struct tags. Amounts
// must be strictly positive and debit and credit totals must match exactly.
func (r CreateEntryRequest) Validate() error {
	if len(r.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, line := range r.Lines {
		if line.AccountID <= 0 {
			return fmt.Errorf("%w: line %d missing account", shared.ErrInvalidLine, idx)
		}
		if line.Amount.Sign() <= 0 {
			return fmt.Errorf("%w: line %d amount must be positive", shared.ErrInvalidLine, idx)
		}
		switch accounts.Side(line.Side) {
		case accounts.SideDebit:
			debit = debit.Add(line.Amount)
		case accounts.SideCredit:
			credit = credit.Add(line.Amount)
		default:
			return fmt.Errorf("%w: line %d has unknown side %q", shared.ErrInvalidLine, idx, line.Side)
		}
	}
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debits %s != credits %s", shared.ErrUnbalanced, debit.String(), credit.String())
	}
	if r.Reference != nil && r.ReferenceType == "" {
		return fmt.Errorf("%w: reference requires a reference type", shared.ErrInvalidLine)
	}
	return nil
}

// ParsedDate returns the entry date.
func (r CreateEntryRequest) ParsedDate() (time.Time, error) {
	return time.Parse("2006-01-02", r.EntryDate)
}

// ListFilter narrows journal listings.
type ListFilter struct {
	Status    *EntryStatus
	AccountID *int64
	From      *time.Time
	To        *time.Time
	Page      int
	PerPage   int
}

// RejectRequest carries the optional rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"max=512"`
}

// ReverseRequest carries the optional reversal memo.
type ReverseRequest struct {
	Description string `json:"description" validate:"max=1024"`
}
