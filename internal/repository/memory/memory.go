// Package memory is an in-process implementation of the repository interfaces.
// It backs local development runs and HTTP tests; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/budget-tracker/internal/errs"
	"github.com/and161185/budget-tracker/internal/model"
	"github.com/and161185/budget-tracker/internal/repository"
)

var (
	_ repository.UserRepository        = (*Users)(nil)
	_ repository.TransactionRepository = (*Transactions)(nil)
)

// Users stores accounts keyed by id with a case-insensitive email index.
type Users struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]model.User
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

// NewUsers returns an empty account store.
func NewUsers() *Users {
	return &Users{
		byID:    map[uuid.UUID]model.User{},
		byEmail: map[string]uuid.UUID{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func emailKey(e string) string { return strings.ToLower(e) }

// Create inserts u and sets its timestamps.
func (s *Users) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := emailKey(u.Email)
	if _, taken := s.byEmail[key]; taken {
		return errs.ErrAlreadyExists
	}
	if _, taken := s.byID[u.ID]; taken {
		return errs.ErrAlreadyExists
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.byID[u.ID] = *u
	s.byEmail[key] = u.ID
	return nil
}

// GetByID returns a copy of the account.
func (s *Users) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneUser(u), nil
}

// GetByEmail returns a copy of the account with the given email.
func (s *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneUser(s.byID[id]), nil
}

// UpdateProfile applies the non-nil fields of upd.
func (s *Users) UpdateProfile(_ context.Context, id uuid.UUID, upd model.ProfileUpdate) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if upd.Email != nil {
		key := emailKey(*upd.Email)
		if owner, taken := s.byEmail[key]; taken && owner != id {
			return nil, errs.ErrAlreadyExists
		}
		delete(s.byEmail, emailKey(u.Email))
		s.byEmail[key] = id
		u.Email = *upd.Email
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	u.UpdatedAt = s.now()
	s.byID[id] = u
	return cloneUser(u), nil
}

// cloneUser returns a copy that shares no pointers with the stored record.
func cloneUser(u model.User) *model.User {
	if u.LastLogin != nil {
		t := *u.LastLogin
		u.LastLogin = &t
	}
	return &u
}

// UpdatePassword replaces the stored credential.
func (s *Users) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return s.mutate(id, func(u *model.User) { u.PasswordHash = hash })
}

// SetActive toggles is_active.
func (s *Users) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return s.mutate(id, func(u *model.User) { u.IsActive = active })
}

// TouchLastLogin stamps last_login with the current time.
func (s *Users) TouchLastLogin(_ context.Context, id uuid.UUID) error {
	now := s.now()
	return s.mutate(id, func(u *model.User) { u.LastLogin = &now })
}

func (s *Users) mutate(id uuid.UUID, fn func(u *model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = s.now()
	s.byID[id] = u
	return nil
}

// Transactions stores transactions keyed by id.
type Transactions struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]model.Transaction
	now  func() time.Time
}

// NewTransactions returns an empty transaction store.
func NewTransactions() *Transactions {
	return &Transactions{
		rows: map[uuid.UUID]model.Transaction{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts t and sets its timestamps.
func (s *Transactions) Create(_ context.Context, t *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.rows[t.ID]; taken {
		return errs.ErrAlreadyExists
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	s.rows[t.ID] = *t
	return nil
}

// Get returns an owned transaction.
func (s *Transactions) Get(_ context.Context, userID, id uuid.UUID) (*model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.rows[id]
	if !ok || t.UserID != userID {
		return nil, errs.ErrNotFound
	}
	return &t, nil
}

// List returns the owner's matching transactions, newest date first.
func (s *Transactions) List(_ context.Context, userID uuid.UUID, f model.TransactionFilter) ([]model.Transaction, error) {
	s.mu.RLock()
	out := make([]model.Transaction, 0)
	for _, t := range s.rows {
		if t.UserID == userID && matches(t, f) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return out[:0], nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(t model.Transaction, f model.TransactionFilter) bool {
	switch {
	case f.Type != "" && t.Type != f.Type:
		return false
	case f.Category != "" && t.Category != f.Category:
		return false
	case !f.From.IsZero() && t.Date.Before(f.From):
		return false
	case !f.To.IsZero() && t.Date.After(f.To):
		return false
	}
	return true
}

// Update overwrites an owned transaction, keeping created_at.
func (s *Transactions) Update(_ context.Context, t *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.rows[t.ID]
	if !ok || old.UserID != t.UserID {
		return errs.ErrNotFound
	}
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = s.now()
	s.rows[t.ID] = *t
	return nil
}

// Delete removes an owned transaction.
func (s *Transactions) Delete(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok || t.UserID != userID {
		return errs.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}
