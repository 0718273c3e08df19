package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/booky/lending/internal/domain/loan"
)

// Timestamps are stored as RFC3339Nano text; ORDER BY goes through
// datetime() so mixed fractional precision still sorts chronologically.
const timeFormat = time.RFC3339Nano

const loanColumns = `id, item_id, borrower_id, status, loaned_at, due_date, returned_at, created_at, updated_at`

type loanRow struct {
	ID         string         `db:"id"`
	ItemID     string         `db:"item_id"`
	BorrowerID string         `db:"borrower_id"`
	Status     string         `db:"status"`
	LoanedAt   string         `db:"loaned_at"`
	DueDate    string         `db:"due_date"`
	ReturnedAt sql.NullString `db:"returned_at"`
	CreatedAt  string         `db:"created_at"`
	UpdatedAt  string         `db:"updated_at"`
}

func (r loanRow) entity() (*loan.Entity, error) {
	out := &loan.Entity{
		ID:         r.ID,
		ItemID:     r.ItemID,
		BorrowerID: r.BorrowerID,
		Status:     loan.StoredStatus(r.Status),
	}
	var err error
	if out.LoanedAt, err = time.Parse(timeFormat, r.LoanedAt); err != nil {
		return nil, fmt.Errorf("parse loaned_at: %w", err)
	}
	if out.DueDate, err = time.Parse(timeFormat, r.DueDate); err != nil {
		return nil, fmt.Errorf("parse due_date: %w", err)
	}
	if out.CreatedAt, err = time.Parse(timeFormat, r.CreatedAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if out.UpdatedAt, err = time.Parse(timeFormat, r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if r.ReturnedAt.Valid {
		t, err := time.Parse(timeFormat, r.ReturnedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse returned_at: %w", err)
		}
		out.ReturnedAt = &t
	}
	return out, nil
}

type LoanRepository struct {
	handle *sqlx.DB
}

func NewLoanRepository(handle *sqlx.DB) *LoanRepository {
	return &LoanRepository{handle: handle}
}

// Create inserts a loan inside a transaction that re-checks the
// single-active-loan invariant, so two writers racing on the same item
// cannot both succeed. The partial unique index on active loans backs
// this up at the schema level.
func (r *LoanRepository) Create(ctx context.Context, in loan.CreateInput) (*loan.Entity, error) {
	tx, err := r.handle.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if in.Status == loan.StatusOnLoan {
		var existing string
		err := tx.GetContext(ctx, &existing,
			`SELECT id FROM loans WHERE item_id = ? AND status = ? LIMIT 1`,
			in.ItemID, loan.StatusOnLoan)
		if err == nil {
			return nil, loan.ErrAlreadyOnLoan
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	var returnedAt any
	if in.ReturnedAt != nil {
		returnedAt = in.ReturnedAt.UTC().Format(timeFormat)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO loans (`+loanColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		in.ID, in.ItemID, in.BorrowerID, string(in.Status),
		in.LoanedAt.UTC().Format(timeFormat),
		in.DueDate.UTC().Format(timeFormat),
		returnedAt,
		in.CreatedAt.UTC().Format(timeFormat),
		in.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, loan.ErrAlreadyOnLoan
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &loan.Entity{
		ID:         in.ID,
		ItemID:     in.ItemID,
		BorrowerID: in.BorrowerID,
		Status:     in.Status,
		LoanedAt:   in.LoanedAt,
		DueDate:    in.DueDate,
		ReturnedAt: in.ReturnedAt,
		CreatedAt:  in.CreatedAt,
		UpdatedAt:  in.UpdatedAt,
	}, nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (*loan.Entity, error) {
	var row loanRow
	err := r.handle.GetContext(ctx, &row,
		`SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, loan.ErrLoanNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.entity()
}

func (r *LoanRepository) FindActiveByItem(ctx context.Context, itemID string) (*loan.Entity, error) {
	var row loanRow
	err := r.handle.GetContext(ctx, &row,
		`SELECT `+loanColumns+` FROM loans WHERE item_id = ? AND status = ? LIMIT 1`,
		itemID, loan.StatusOnLoan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.entity()
}

func (r *LoanRepository) ListActive(ctx context.Context, borrowerID string) ([]loan.Entity, error) {
	q := `SELECT ` + loanColumns + ` FROM loans WHERE status = ?`
	args := []any{loan.StatusOnLoan}
	if borrowerID != "" {
		q += ` AND borrower_id = ?`
		args = append(args, borrowerID)
	}
	q += ` ORDER BY datetime(due_date) ASC`

	var rows []loanRow
	if err := r.handle.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]loan.Entity, 0, len(rows))
	for _, row := range rows {
		e, err := row.entity()
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func (r *LoanRepository) MarkReturned(ctx context.Context, id string, returnedAt time.Time) error {
	ts := returnedAt.UTC().Format(timeFormat)
	res, err := r.handle.ExecContext(ctx,
		`UPDATE loans SET status = ?, returned_at = ?, updated_at = ? WHERE id = ?`,
		loan.StatusReturned, ts, ts, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return loan.ErrLoanNotFound
	}
	return nil
}

func (r *LoanRepository) ExtendDueDate(ctx context.Context, id string, dueDate, updatedAt time.Time) (*loan.Entity, error) {
	res, err := r.handle.ExecContext(ctx,
		`UPDATE loans SET due_date = ?, updated_at = ? WHERE id = ?`,
		dueDate.UTC().Format(timeFormat), updatedAt.UTC().Format(timeFormat), id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, loan.ErrLoanNotFound
	}
	return r.GetByID(ctx, id)
}

func isUniqueViolation(err error) bool {
	var serr *sqlitedrv.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
