package loan

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	borrowerdomain "github.com/booky/lending/internal/domain/borrower"
)

const collection = "loans"

// SchemaGuard reports whether a record collection is currently
// queryable. Every operation consults it before touching the store, so a
// dataset imported from an application version without lending degrades
// to ErrFeatureUnavailable instead of a raw storage error.
type SchemaGuard interface {
	EnsureCollection(ctx context.Context, name string) bool
}

// BorrowerDirectory is the slice of the borrower service the CSV import
// needs for contact de-duplication.
type BorrowerDirectory interface {
	FindOrCreate(ctx context.Context, in borrowerdomain.CreateInput) (*borrowerdomain.Entity, error)
}

type Service struct {
	repo      Repository
	borrowers BorrowerDirectory
	guard     SchemaGuard
	now       func() time.Time
}

func NewService(repo Repository, borrowers BorrowerDirectory, guard SchemaGuard) *Service {
	return NewServiceWithClock(repo, borrowers, guard, func() time.Time { return time.Now().UTC() })
}

// NewServiceWithClock injects the clock; tests pin now to a fixed
// instant.
func NewServiceWithClock(repo Repository, borrowers BorrowerDirectory, guard SchemaGuard, now func() time.Time) *Service {
	return &Service{repo: repo, borrowers: borrowers, guard: guard, now: now}
}

// LoanBook creates an active loan for an item and returns the new loan
// id. A nil dueDate means now plus the 14-day default period. The item
// id is an opaque reference; catalog existence is the caller's concern.
func (s *Service) LoanBook(ctx context.Context, itemID, borrowerID string, dueDate *time.Time) (string, error) {
	if !s.guard.EnsureCollection(ctx, collection) {
		return "", ErrFeatureUnavailable
	}
	if strings.TrimSpace(itemID) == "" {
		return "", &ValidationError{Field: "item_id", Message: "required"}
	}
	if strings.TrimSpace(borrowerID) == "" {
		return "", &ValidationError{Field: "borrower_id", Message: "required"}
	}

	now := s.now()
	due := now.Add(DefaultLoanPeriod)
	if dueDate != nil {
		if dueDate.Before(now) {
			return "", &ValidationError{Field: "due_date", Message: "must not be before the loan date"}
		}
		due = dueDate.UTC()
	}

	existing, err := s.repo.FindActiveByItem(ctx, itemID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrAlreadyOnLoan
	}

	created, err := s.repo.Create(ctx, CreateInput{
		ID:         uuid.NewString(),
		ItemID:     itemID,
		BorrowerID: borrowerID,
		Status:     StatusOnLoan,
		LoanedAt:   now,
		DueDate:    due,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// ReturnBook marks a loan returned. Returning an already-returned loan
// is a no-op success so duplicate UI submissions stay harmless; the
// original ReturnedAt is kept.
func (s *Service) ReturnBook(ctx context.Context, loanID string) error {
	if !s.guard.EnsureCollection(ctx, collection) {
		return ErrFeatureUnavailable
	}
	e, err := s.repo.GetByID(ctx, loanID)
	if err != nil {
		return err
	}
	if e.Status == StatusReturned {
		return nil
	}
	return s.repo.MarkReturned(ctx, e.ID, s.now())
}

// RenewLoan extends an active loan's due date by extensionDays (14 when
// zero or negative), counted from the later of the current due date and
// now. A returned loan cannot be renewed.
func (s *Service) RenewLoan(ctx context.Context, loanID string, extensionDays int) (*Entity, error) {
	if !s.guard.EnsureCollection(ctx, collection) {
		return nil, ErrFeatureUnavailable
	}
	if extensionDays <= 0 {
		extensionDays = DefaultExtensionDays
	}
	e, err := s.repo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusOnLoan {
		return nil, ErrInvalidState
	}

	now := s.now()
	base := e.DueDate
	if base.Before(now) {
		base = now
	}
	return s.repo.ExtendDueDate(ctx, e.ID, base.AddDate(0, 0, extensionDays), now)
}

// ListActiveLoans returns on_loan records ordered by due date ascending,
// soonest due first, optionally scoped to one borrower.
func (s *Service) ListActiveLoans(ctx context.Context, borrowerID string) ([]Entity, error) {
	if !s.guard.EnsureCollection(ctx, collection) {
		return nil, ErrFeatureUnavailable
	}
	return s.repo.ListActive(ctx, borrowerID)
}

// FindLoanForItem returns the item's current active loan, or nil when it
// has none.
func (s *Service) FindLoanForItem(ctx context.Context, itemID string) (*Entity, error) {
	if !s.guard.EnsureCollection(ctx, collection) {
		return nil, ErrFeatureUnavailable
	}
	return s.repo.FindActiveByItem(ctx, itemID)
}

// ItemAvailable reports whether an item can be loaned right now.
func (s *Service) ItemAvailable(ctx context.Context, itemID string) (bool, error) {
	e, err := s.FindLoanForItem(ctx, itemID)
	if err != nil {
		return false, err
	}
	return IsAvailable(e, s.now()), nil
}
