package unit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	loandomain "github.com/booky/lending/internal/domain/loan"
)

const importHeader = "borrower_name,borrower_email,borrower_phone,item_id,loaned_at,due_date,returned_at\n"

func newImportService(repo *loanRepoMock, dir *borrowerDirMock, guard *guardStub) *loandomain.Service {
	return loandomain.NewServiceWithClock(repo, dir, guard, func() time.Time { return fixedNow })
}

func TestImportCSVCreatesActiveAndReturnedLoans(t *testing.T) {
	repo := &loanRepoMock{}
	dir := &borrowerDirMock{}
	svc := newImportService(repo, dir, &guardStub{available: true})

	input := strings.NewReader(importHeader +
		"Ann,ann@example.com,+15550100,B1,2023-11-01T09:00:00Z,2023-11-15T09:00:00Z,2023-11-10T12:00:00Z\n" +
		"Ann,ann@example.com,+15550100,B2,2024-01-10T09:00:00Z,2024-01-24T09:00:00Z,\n")

	result, err := svc.ImportCSV(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	returned, _ := repo.GetByID(context.Background(), result.LoanIDs[0])
	if returned.Status != loandomain.StatusReturned || returned.ReturnedAt == nil {
		t.Fatalf("first row should be a returned loan: %+v", returned)
	}
	active, _ := repo.GetByID(context.Background(), result.LoanIDs[1])
	if active.Status != loandomain.StatusOnLoan || active.ReturnedAt != nil {
		t.Fatalf("second row should be an active loan: %+v", active)
	}

	// Both rows share one borrower.
	if active.BorrowerID != returned.BorrowerID {
		t.Fatalf("borrower should be de-duplicated across rows")
	}
}

func TestImportCSVCollectsRowErrorsWithoutAborting(t *testing.T) {
	repo := &loanRepoMock{}
	svc := newImportService(repo, &borrowerDirMock{}, &guardStub{available: true})

	input := strings.NewReader(importHeader +
		"Ann,ann@example.com,,B1,2024-01-10T09:00:00Z,2024-01-24T09:00:00Z,\n" +
		",missing@example.com,,B2,2024-01-10T09:00:00Z,2024-01-24T09:00:00Z,\n" +
		"Bob,bob@example.com,,B3,2024-01-10T09:00:00Z,2024-01-01T09:00:00Z,\n" +
		"Cid,cid@example.com,,B1,2024-01-11T09:00:00Z,2024-01-25T09:00:00Z,\n")

	result, err := svc.ImportCSV(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("expected 1 processed row, got %d", result.Processed)
	}
	if len(result.Errors) != 3 {
		t.Fatalf("expected 3 row errors, got %+v", result.Errors)
	}
	fields := map[string]bool{}
	for _, e := range result.Errors {
		fields[e.Field] = true
	}
	// Missing name, due before loaned, duplicate active loan for B1.
	for _, f := range []string{"borrower_name", "due_date", "item_id"} {
		if !fields[f] {
			t.Fatalf("expected a %s row error, got %+v", f, result.Errors)
		}
	}
}

func TestImportCSVRejectsBadHeader(t *testing.T) {
	svc := newImportService(&loanRepoMock{}, &borrowerDirMock{}, &guardStub{available: true})

	result, err := svc.ImportCSV(context.Background(), strings.NewReader("a,b,c\n1,2,3\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 0 || len(result.Errors) != 1 || result.Errors[0].Field != "header" {
		t.Fatalf("expected a header error, got %+v", result)
	}
}

func TestImportCSVFailsClosedWhenGuardReportsUnavailable(t *testing.T) {
	repo := &loanRepoMock{}
	svc := newImportService(repo, &borrowerDirMock{}, &guardStub{available: false})

	_, err := svc.ImportCSV(context.Background(), strings.NewReader(importHeader))
	if !errors.Is(err, loandomain.ErrFeatureUnavailable) {
		t.Fatalf("expected ErrFeatureUnavailable, got %v", err)
	}
	if len(repo.items) != 0 {
		t.Fatalf("no record may be written while the feature is unavailable")
	}
}
