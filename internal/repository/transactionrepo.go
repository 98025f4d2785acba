package repository

import (
	"context"

	"github.com/and161185/budget-tracker/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TransactionRepository provides owner-scoped access to transactions. Every
// method takes the owner id and never touches rows of other users.
type TransactionRepository interface {
	// Create inserts a transaction; tx.UserID must be set.
	Create(ctx context.Context, tx *model.Transaction) error
	// Get returns a single transaction owned by userID.
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Transaction, error)
	// List returns the owner's transactions, newest date first.
	List(ctx context.Context, userID uuid.UUID, f model.TransactionFilter) ([]model.Transaction, error)
	// Update overwrites the mutable fields of an owned transaction.
	Update(ctx context.Context, tx *model.Transaction) error
	// Delete removes an owned transaction.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}
