package integration

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	borrowerdomain "github.com/booky/lending/internal/domain/borrower"
	loandomain "github.com/booky/lending/internal/domain/loan"
	sqliterepo "github.com/booky/lending/internal/repository/sqlite"
	"github.com/booky/lending/test/integration/testutil"
)

var baseTime = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func newLoanInput(itemID, borrowerID string, due time.Time) loandomain.CreateInput {
	return loandomain.CreateInput{
		ID:         uuid.NewString(),
		ItemID:     itemID,
		BorrowerID: borrowerID,
		Status:     loandomain.StatusOnLoan,
		LoanedAt:   baseTime,
		DueDate:    due,
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	}
}

func TestLoanRepositoryRoundTrip(t *testing.T) {
	handle := testutil.NewMigratedTestDB(t)
	repo := sqliterepo.NewLoanRepository(handle)
	ctx := context.Background()

	created, err := repo.Create(ctx, newLoanInput("B1", "U1", baseTime.Add(14*24*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ItemID != "B1" || got.Status != loandomain.StatusOnLoan || got.ReturnedAt != nil {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.LoanedAt.Equal(baseTime) || !got.DueDate.Equal(baseTime.Add(14*24*time.Hour)) {
		t.Fatalf("timestamps did not round-trip: %+v", got)
	}

	if _, err := repo.GetByID(ctx, "nonexistent-id"); !errors.Is(err, loandomain.ErrLoanNotFound) {
		t.Fatalf("expected ErrLoanNotFound, got %v", err)
	}
}

func TestLoanRepositoryRejectsSecondActiveLoan(t *testing.T) {
	handle := testutil.NewMigratedTestDB(t)
	repo := sqliterepo.NewLoanRepository(handle)
	ctx := context.Background()

	if _, err := repo.Create(ctx, newLoanInput("B1", "U1", baseTime.Add(24*time.Hour))); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := repo.Create(ctx, newLoanInput("B1", "U2", baseTime.Add(48*time.Hour)))
	if !errors.Is(err, loandomain.ErrAlreadyOnLoan) {
		t.Fatalf("expected ErrAlreadyOnLoan, got %v", err)
	}

	var count int
	if err := handle.GetContext(ctx, &count, `SELECT COUNT(*) FROM loans WHERE item_id = 'B1'`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single record, got %d", count)
	}

	// A returned record for the same item is history, not a conflict.
	in := newLoanInput("B2", "U1", baseTime.Add(24*time.Hour))
	returnedAt := baseTime.Add(12 * time.Hour)
	in.Status = loandomain.StatusReturned
	in.ReturnedAt = &returnedAt
	if _, err := repo.Create(ctx, in); err != nil {
		t.Fatalf("returned create: %v", err)
	}
	if _, err := repo.Create(ctx, newLoanInput("B2", "U2", baseTime.Add(24*time.Hour))); err != nil {
		t.Fatalf("new active loan after returned record: %v", err)
	}
}

func TestLoanRepositoryListActiveOrdering(t *testing.T) {
	handle := testutil.NewMigratedTestDB(t)
	repo := sqliterepo.NewLoanRepository(handle)
	ctx := context.Background()

	late, err := repo.Create(ctx, newLoanInput("B1", "U1", baseTime.Add(21*24*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	soon, err := repo.Create(ctx, newLoanInput("B2", "U2", baseTime.Add(24*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mid, err := repo.Create(ctx, newLoanInput("B3", "U1", baseTime.Add(7*24*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	items, err := repo.ListActive(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 || items[0].ID != soon.ID || items[1].ID != mid.ID || items[2].ID != late.ID {
		t.Fatalf("expected due-date ascending order, got %+v", items)
	}

	scoped, err := repo.ListActive(ctx, "U1")
	if err != nil {
		t.Fatalf("list scoped: %v", err)
	}
	if len(scoped) != 2 || scoped[0].ID != mid.ID || scoped[1].ID != late.ID {
		t.Fatalf("unexpected scoped result: %+v", scoped)
	}
}

func TestLoanRepositoryMarkReturnedAndExtend(t *testing.T) {
	handle := testutil.NewMigratedTestDB(t)
	repo := sqliterepo.NewLoanRepository(handle)
	ctx := context.Background()

	created, err := repo.Create(ctx, newLoanInput("B1", "U1", baseTime.Add(24*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newDue := baseTime.Add(15 * 24 * time.Hour)
	updated, err := repo.ExtendDueDate(ctx, created.ID, newDue, baseTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !updated.DueDate.Equal(newDue) || updated.Status != loandomain.StatusOnLoan {
		t.Fatalf("unexpected record after extend: %+v", updated)
	}

	returnedAt := baseTime.Add(2 * time.Hour)
	if err := repo.MarkReturned(ctx, created.ID, returnedAt); err != nil {
		t.Fatalf("mark returned: %v", err)
	}
	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != loandomain.StatusReturned || got.ReturnedAt == nil || !got.ReturnedAt.Equal(returnedAt) {
		t.Fatalf("unexpected record after return: %+v", got)
	}

	active, err := repo.FindActiveByItem(ctx, "B1")
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active != nil {
		t.Fatalf("returned loan must not be reported active")
	}

	if err := repo.MarkReturned(ctx, "nonexistent-id", returnedAt); !errors.Is(err, loandomain.ErrLoanNotFound) {
		t.Fatalf("expected ErrLoanNotFound, got %v", err)
	}
}

func TestBorrowerRepositoryFingerprintLookup(t *testing.T) {
	handle := testutil.NewMigratedTestDB(t)
	repo := sqliterepo.NewBorrowerRepository(handle)
	ctx := context.Background()

	e := borrowerdomain.Entity{
		ID:          uuid.NewString(),
		Name:        "Ann",
		Email:       "ann@example.com",
		Phone:       "+15550100",
		Fingerprint: borrowerdomain.ContactFingerprint("ann@example.com", "+15550100"),
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
	}
	if err := repo.Insert(ctx, e); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.FindByFingerprint(ctx, borrowerdomain.ContactFingerprint("ann@example.com", "+1 555 0100"))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.ID != e.ID || !bytes.Equal(got.Fingerprint, e.Fingerprint) {
		t.Fatalf("unexpected lookup result: %+v", got)
	}

	miss, err := repo.FindByFingerprint(ctx, borrowerdomain.ContactFingerprint("bob@example.com", ""))
	if err != nil {
		t.Fatalf("find miss: %v", err)
	}
	if miss != nil {
		t.Fatalf("expected absent result, got %+v", miss)
	}

	if _, err := repo.GetByID(ctx, "nonexistent-id"); !errors.Is(err, borrowerdomain.ErrBorrowerNotFound) {
		t.Fatalf("expected ErrBorrowerNotFound, got %v", err)
	}
}
