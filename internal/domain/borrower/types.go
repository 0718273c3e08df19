package borrower

import (
	"context"
	"time"
)

type Entity struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	Fingerprint []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateInput struct {
	Name  string
	Email string
	Phone string
}

type Repository interface {
	Insert(ctx context.Context, e Entity) error
	// GetByID returns ErrBorrowerNotFound when no record exists.
	GetByID(ctx context.Context, id string) (*Entity, error)
	// FindByFingerprint returns nil, nil when no borrower matches the
	// contact fingerprint.
	FindByFingerprint(ctx context.Context, fingerprint []byte) (*Entity, error)
}
