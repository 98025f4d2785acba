package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/budget-tracker/internal/errs"
	"github.com/and161185/budget-tracker/internal/model"
	"github.com/and161185/budget-tracker/internal/repository"
)

// MaxListLimit caps a single listing page.
const MaxListLimit = 500

// MaxAmount is the largest amount the NUMERIC(14,2) column holds.
const MaxAmount = 999999999999.99

// TransactionService defines owner-scoped operations over transactions. The
// userID argument always comes from the auth gate.
type TransactionService interface {
	Create(ctx context.Context, userID uuid.UUID, in TransactionInput) (*model.Transaction, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Transaction, error)
	List(ctx context.Context, userID uuid.UUID, f model.TransactionFilter) ([]model.Transaction, error)
	Update(ctx context.Context, userID, id uuid.UUID, in TransactionInput) (*model.Transaction, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Summary(ctx context.Context, userID uuid.UUID, f model.TransactionFilter) (model.Summary, error)
}

// TransactionInput holds the client-editable fields of a transaction.
type TransactionInput struct {
	Description string
	Amount      float64
	Type        model.TransactionType
	Category    string
	Date        time.Time
}

type TransactionServiceImpl struct {
	repo repository.TransactionRepository
}

// NewTransactionService constructs TransactionService.
func NewTransactionService(repo repository.TransactionRepository) *TransactionServiceImpl {
	return &TransactionServiceImpl{repo: repo}
}

// validate checks input and returns a normalized copy.
// Rules:
// - description and category not blank
// - amount rounded to cents, then 0 < amount <= MaxAmount
// - type is income or expense
// - date set; truncated to a UTC calendar day
func (in TransactionInput) validate() (TransactionInput, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Amount = math.Round(in.Amount*100) / 100
	switch {
	case in.Description == "":
		return in, fmt.Errorf("%w: empty description", errs.ErrValidation)
	case in.Category == "":
		return in, fmt.Errorf("%w: empty category", errs.ErrValidation)
	case !(in.Amount > 0):
		return in, fmt.Errorf("%w: amount must be at least 0.01", errs.ErrValidation)
	case in.Amount > MaxAmount:
		return in, fmt.Errorf("%w: amount exceeds %.2f", errs.ErrValidation, MaxAmount)
	case !in.Type.Valid():
		return in, fmt.Errorf("%w: unknown type %q", errs.ErrValidation, in.Type)
	case in.Date.IsZero():
		return in, fmt.Errorf("%w: empty date", errs.ErrValidation)
	}
	in.Date = DateOnly(in.Date)
	return in, nil
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Create validates and stores a new transaction for userID.
func (s *TransactionServiceImpl) Create(ctx context.Context, userID uuid.UUID, in TransactionInput) (*model.Transaction, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	t := &model.Transaction{
		ID:          id,
		UserID:      userID,
		Description: in.Description,
		Amount:      in.Amount,
		Type:        in.Type,
		Category:    in.Category,
		Date:        in.Date,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get fetches one owned transaction.
func (s *TransactionServiceImpl) Get(ctx context.Context, userID, id uuid.UUID) (*model.Transaction, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID/id", errs.ErrValidation)
	}
	return s.repo.Get(ctx, userID, id)
}

// List returns owned transactions matching f.
func (s *TransactionServiceImpl) List(ctx context.Context, userID uuid.UUID, f model.TransactionFilter) ([]model.Transaction, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	f, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, userID, f)
}

// Update overwrites an owned transaction.
func (s *TransactionServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, in TransactionInput) (*model.Transaction, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID/id", errs.ErrValidation)
	}
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	t := &model.Transaction{
		ID:          id,
		UserID:      userID,
		Description: in.Description,
		Amount:      in.Amount,
		Type:        in.Type,
		Category:    in.Category,
		Date:        in.Date,
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes an owned transaction.
func (s *TransactionServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil || id == uuid.Nil {
		return fmt.Errorf("%w: empty userID/id", errs.ErrValidation)
	}
	return s.repo.Delete(ctx, userID, id)
}

// Summary totals owned transactions matching f. Paging fields of f are ignored.
func (s *TransactionServiceImpl) Summary(ctx context.Context, userID uuid.UUID, f model.TransactionFilter) (model.Summary, error) {
	f.Limit, f.Offset = 0, 0
	if userID == uuid.Nil {
		return model.Summary{}, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	f, err := normalizeFilter(f)
	if err != nil {
		return model.Summary{}, err
	}
	txs, err := s.repo.List(ctx, userID, f)
	if err != nil {
		return model.Summary{}, err
	}
	return Summarize(txs), nil
}

// Summarize aggregates txs. Category totals are signed: income adds, expense subtracts.
func Summarize(txs []model.Transaction) model.Summary {
	sum := model.Summary{ByCategory: make(map[string]float64)}
	for _, t := range txs {
		switch t.Type {
		case model.TransactionIncome:
			sum.Income += t.Amount
			sum.ByCategory[t.Category] += t.Amount
		case model.TransactionExpense:
			sum.Expense += t.Amount
			sum.ByCategory[t.Category] -= t.Amount
		default:
			continue
		}
		sum.Count++
	}
	sum.Balance = sum.Income - sum.Expense
	return sum
}

func normalizeFilter(f model.TransactionFilter) (model.TransactionFilter, error) {
	if f.Type != "" && !f.Type.Valid() {
		return f, fmt.Errorf("%w: unknown type %q", errs.ErrValidation, f.Type)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return f, fmt.Errorf("%w: negative paging", errs.ErrValidation)
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if !f.From.IsZero() {
		f.From = DateOnly(f.From)
	}
	if !f.To.IsZero() {
		f.To = DateOnly(f.To)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("%w: to before from", errs.ErrValidation)
	}
	return f, nil
}
