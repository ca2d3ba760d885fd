// Package shared holds sentinel errors common to the ledger modules.
package shared

import "errors"

var (
	// ErrUnbalanced indicates debit sum != credit sum.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrInvalidLine indicates a malformed line (bad amount, side, or account reference).
	ErrInvalidLine = errors.New("ledger: invalid journal line")
	// ErrAccountNotFound indicates the referenced account does not exist for the tenant.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrAccountInactive indicates the referenced account is deactivated.
	ErrAccountInactive = errors.New("ledger: account is inactive")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("ledger: journal entry not found")
	// ErrPeriodNotFound indicates no fiscal period covers the requested date.
	ErrPeriodNotFound = errors.New("ledger: fiscal period not found")
	// ErrPeriodClosed indicates posting attempted against a non-open period.
	ErrPeriodClosed = errors.New("ledger: fiscal period not open for posting")
	// ErrPeriodOverlap indicates a new period intersects an existing one.
	ErrPeriodOverlap = errors.New("ledger: fiscal period overlaps an existing period")
	// ErrInvalidStatus indicates the entry is not in the state the transition requires.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
	// ErrInvalidPeriodTransition indicates a period status change outside the
	// OPEN -> CLOSED -> LOCKED order.
	ErrInvalidPeriodTransition = errors.New("ledger: invalid period transition")
	// ErrDuplicateCode indicates an account code already exists for the tenant.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrSourceAlreadyLinked indicates the external reference was posted before.
	ErrSourceAlreadyLinked = errors.New("ledger: source reference already linked")
)
