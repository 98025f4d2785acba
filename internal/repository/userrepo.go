// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/budget-tracker/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository is the account store. Email uniqueness is enforced by the backend.
type UserRepository interface {
	// Create inserts a new user; a taken email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID regardless of activity.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by (lower-cased) email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateProfile applies non-nil profile fields and returns the updated user.
	UpdateProfile(ctx context.Context, id uuid.UUID, upd model.ProfileUpdate) (*model.User, error)
	// UpdatePassword replaces the stored credential.
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	// SetActive toggles the account's is_active flag.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// TouchLastLogin stamps the time of a successful login.
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}
