package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/booky/lending/internal/domain/borrower"
)

const borrowerColumns = `id, name, email, phone, fingerprint, created_at, updated_at`

type borrowerRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Email       string `db:"email"`
	Phone       string `db:"phone"`
	Fingerprint []byte `db:"fingerprint"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func (r borrowerRow) entity() (*borrower.Entity, error) {
	out := &borrower.Entity{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Fingerprint: r.Fingerprint,
	}
	var err error
	if out.CreatedAt, err = time.Parse(timeFormat, r.CreatedAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if out.UpdatedAt, err = time.Parse(timeFormat, r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return out, nil
}

type BorrowerRepository struct {
	handle *sqlx.DB
}

func NewBorrowerRepository(handle *sqlx.DB) *BorrowerRepository {
	return &BorrowerRepository{handle: handle}
}

func (r *BorrowerRepository) Insert(ctx context.Context, e borrower.Entity) error {
	_, err := r.handle.ExecContext(ctx,
		`INSERT INTO borrowers (`+borrowerColumns+`) VALUES (?,?,?,?,?,?,?)`,
		e.ID, e.Name, e.Email, e.Phone, e.Fingerprint,
		e.CreatedAt.UTC().Format(timeFormat),
		e.UpdatedAt.UTC().Format(timeFormat),
	)
	return err
}

func (r *BorrowerRepository) GetByID(ctx context.Context, id string) (*borrower.Entity, error) {
	var row borrowerRow
	err := r.handle.GetContext(ctx, &row,
		`SELECT `+borrowerColumns+` FROM borrowers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, borrower.ErrBorrowerNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.entity()
}

func (r *BorrowerRepository) FindByFingerprint(ctx context.Context, fingerprint []byte) (*borrower.Entity, error) {
	var row borrowerRow
	err := r.handle.GetContext(ctx, &row,
		`SELECT `+borrowerColumns+` FROM borrowers WHERE fingerprint = ? ORDER BY datetime(created_at) ASC LIMIT 1`,
		fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.entity()
}
