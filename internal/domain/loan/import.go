package loan

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	borrowerdomain "github.com/booky/lending/internal/domain/borrower"
)

var expectedHeaders = []string{
	"borrower_name",
	"borrower_email",
	"borrower_phone",
	"item_id",
	"loaned_at",
	"due_date",
	"returned_at",
}

type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ImportResult struct {
	LoanIDs   []string   `json:"loan_ids"`
	Processed int        `json:"processed"`
	Errors    []RowError `json:"errors"`
}

// ImportCSV ingests a legacy lending export. Borrowers are de-duplicated
// by contact fingerprint; rows with a returned_at produce terminal
// returned records, the rest produce active loans. Bad rows are
// collected as row errors and do not abort the run.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	if !s.guard.EnsureCollection(ctx, collection) || !s.guard.EnsureCollection(ctx, "borrowers") {
		return nil, ErrFeatureUnavailable
	}

	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid_csv")
	}
	if len(rows) < 2 {
		return &ImportResult{LoanIDs: []string{}, Errors: []RowError{{Row: 1, Field: "file", Message: "csv must include header and at least one data row"}}}, nil
	}
	if err := validateHeader(rows[0]); err != nil {
		return &ImportResult{LoanIDs: []string{}, Errors: []RowError{{Row: 1, Field: "header", Message: err.Error()}}}, nil
	}

	result := &ImportResult{LoanIDs: []string{}, Errors: []RowError{}}
	for i := 1; i < len(rows); i++ {
		rowNum := i + 1

		parsed, rowErr := parseRow(rows[i])
		if rowErr != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Field: rowErr.Field, Message: rowErr.Message})
			continue
		}

		holder, err := s.borrowers.FindOrCreate(ctx, borrowerdomain.CreateInput{
			Name:  parsed.BorrowerName,
			Email: parsed.BorrowerEmail,
			Phone: parsed.BorrowerPhone,
		})
		if err != nil {
			var verr *borrowerdomain.ValidationError
			if errors.As(err, &verr) {
				result.Errors = append(result.Errors, RowError{Row: rowNum, Field: "borrower_" + verr.Field, Message: verr.Message})
				continue
			}
			return nil, err
		}

		now := s.now()
		in := CreateInput{
			ID:         uuid.NewString(),
			ItemID:     parsed.ItemID,
			BorrowerID: holder.ID,
			Status:     StatusOnLoan,
			LoanedAt:   parsed.LoanedAt,
			DueDate:    parsed.DueDate,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if parsed.ReturnedAt != nil {
			in.Status = StatusReturned
			in.ReturnedAt = parsed.ReturnedAt
		}

		created, err := s.repo.Create(ctx, in)
		if err != nil {
			if errors.Is(err, ErrAlreadyOnLoan) {
				result.Errors = append(result.Errors, RowError{Row: rowNum, Field: "item_id", Message: "item already has an active loan"})
				continue
			}
			return nil, err
		}

		result.LoanIDs = append(result.LoanIDs, created.ID)
		result.Processed++
	}

	return result, nil
}

type parsedRow struct {
	BorrowerName  string
	BorrowerEmail string
	BorrowerPhone string
	ItemID        string
	LoanedAt      time.Time
	DueDate       time.Time
	ReturnedAt    *time.Time
}

func validateHeader(header []string) error {
	if len(header) < len(expectedHeaders) {
		return fmt.Errorf("invalid column count")
	}
	for i, expected := range expectedHeaders {
		if strings.TrimSpace(strings.ToLower(header[i])) != expected {
			return fmt.Errorf("expected header %q at position %d", expected, i+1)
		}
	}
	return nil
}

func parseRow(row []string) (*parsedRow, *RowError) {
	if len(row) < len(expectedHeaders) {
		return nil, &RowError{Field: "row", Message: "invalid column count"}
	}

	name := strings.TrimSpace(row[0])
	if name == "" {
		return nil, &RowError{Field: "borrower_name", Message: "required"}
	}

	itemID := strings.TrimSpace(row[3])
	if itemID == "" {
		return nil, &RowError{Field: "item_id", Message: "required"}
	}

	loanedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(row[4]))
	if err != nil {
		return nil, &RowError{Field: "loaned_at", Message: "must be RFC3339"}
	}

	dueDate, err := time.Parse(time.RFC3339, strings.TrimSpace(row[5]))
	if err != nil {
		return nil, &RowError{Field: "due_date", Message: "must be RFC3339"}
	}
	if dueDate.Before(loanedAt) {
		return nil, &RowError{Field: "due_date", Message: "must not be before loaned_at"}
	}

	out := &parsedRow{
		BorrowerName:  name,
		BorrowerEmail: strings.TrimSpace(row[1]),
		BorrowerPhone: strings.TrimSpace(row[2]),
		ItemID:        itemID,
		LoanedAt:      loanedAt.UTC(),
		DueDate:       dueDate.UTC(),
	}

	if v := strings.TrimSpace(row[6]); v != "" {
		returnedAt, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, &RowError{Field: "returned_at", Message: "must be RFC3339"}
		}
		if returnedAt.Before(loanedAt) {
			return nil, &RowError{Field: "returned_at", Message: "must not be before loaned_at"}
		}
		u := returnedAt.UTC()
		out.ReturnedAt = &u
	}

	return out, nil
}
