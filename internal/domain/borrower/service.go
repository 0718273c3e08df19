package borrower

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

const collection = "borrowers"

var (
	ErrFeatureUnavailable = errors.New("lending is not available for this library, refresh and try again")
	ErrBorrowerNotFound   = errors.New("borrower not found")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ContactFingerprint hashes the normalized (email, phone) pair. The
// fingerprint is the advisory de-duplication key: lookups use it, but
// nothing enforces it as unique.
func ContactFingerprint(email, phone string) []byte {
	input := fmt.Sprintf("%s:%s",
		strings.ToLower(strings.TrimSpace(email)),
		normalizePhone(phone))
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(input))
	return h.Sum(nil)
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type SchemaGuard interface {
	EnsureCollection(ctx context.Context, name string) bool
}

type Service struct {
	repo  Repository
	guard SchemaGuard
	now   func() time.Time
}

func NewService(repo Repository, guard SchemaGuard) *Service {
	return NewServiceWithClock(repo, guard, func() time.Time { return time.Now().UTC() })
}

func NewServiceWithClock(repo Repository, guard SchemaGuard, now func() time.Time) *Service {
	return &Service{repo: repo, guard: guard, now: now}
}

// Create validates contact fields and inserts a borrower.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Entity, error) {
	if !s.guard.EnsureCollection(ctx, collection) {
		return nil, ErrFeatureUnavailable
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	now := s.now()
	e := Entity{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:       strings.TrimSpace(in.Phone),
		Fingerprint: ContactFingerprint(in.Email, in.Phone),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return nil, err
	}
	return &e, nil
}

// FindOrCreate returns the borrower matching the contact fingerprint,
// creating one when no match exists.
func (s *Service) FindOrCreate(ctx context.Context, in CreateInput) (*Entity, error) {
	if !s.guard.EnsureCollection(ctx, collection) {
		return nil, ErrFeatureUnavailable
	}
	existing, err := s.repo.FindByFingerprint(ctx, ContactFingerprint(in.Email, in.Phone))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.Create(ctx, in)
}

func (s *Service) Get(ctx context.Context, id string) (*Entity, error) {
	if !s.guard.EnsureCollection(ctx, collection) {
		return nil, ErrFeatureUnavailable
	}
	return s.repo.GetByID(ctx, id)
}

func validate(in CreateInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Message: "required"}
	}
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	if email == "" && phone == "" {
		return &ValidationError{Field: "email", Message: "email or phone required"}
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return &ValidationError{Field: "email", Message: "malformed address"}
		}
	}
	if phone != "" && len(normalizePhone(phone)) < 5 {
		return &ValidationError{Field: "phone", Message: "too short"}
	}
	return nil
}
