package loan

import (
	"context"
	"time"
)

// StoredStatus is the two-valued persisted lifecycle field. Overdue and
// available are derived at read time and never stored, so no background
// job is needed to keep them in sync with the clock.
type StoredStatus string

const (
	StatusOnLoan   StoredStatus = "on_loan"
	StatusReturned StoredStatus = "returned"
)

// EffectiveStatus is the read-time status, including overdue.
type EffectiveStatus string

const (
	EffectiveOnLoan   EffectiveStatus = "on_loan"
	EffectiveOverdue  EffectiveStatus = "overdue"
	EffectiveReturned EffectiveStatus = "returned"
)

const (
	DefaultLoanPeriod    = 14 * 24 * time.Hour
	DefaultExtensionDays = 14
)

type Entity struct {
	ID         string
	ItemID     string
	BorrowerID string
	Status     StoredStatus
	LoanedAt   time.Time
	DueDate    time.Time
	ReturnedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type CreateInput struct {
	ID         string
	ItemID     string
	BorrowerID string
	Status     StoredStatus
	LoanedAt   time.Time
	DueDate    time.Time
	ReturnedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Repository interface {
	// Create inserts a loan record. For an on_loan record it must reject
	// with ErrAlreadyOnLoan, atomically with the insert, when the item
	// already has an active loan.
	Create(ctx context.Context, in CreateInput) (*Entity, error)
	// GetByID returns ErrLoanNotFound when no record exists.
	GetByID(ctx context.Context, id string) (*Entity, error)
	// FindActiveByItem returns nil, nil when the item has no active loan.
	FindActiveByItem(ctx context.Context, itemID string) (*Entity, error)
	// ListActive returns on_loan records ordered by due date ascending,
	// optionally scoped to one borrower.
	ListActive(ctx context.Context, borrowerID string) ([]Entity, error)
	MarkReturned(ctx context.Context, id string, returnedAt time.Time) error
	ExtendDueDate(ctx context.Context, id string, dueDate, updatedAt time.Time) (*Entity, error)
}
