package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/budget-tracker/internal/errs"
	"github.com/and161185/budget-tracker/internal/model"
	"github.com/and161185/budget-tracker/internal/repository"
)

type fakeUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.User

	createErr error
	getErr    error
	touchErr  error

	touched      int
	passwordSets int
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*model.User{}}
}

func (f *fakeUsers) put(u *model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *u
	f.byID[u.ID] = &c
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, x := range f.byID {
		if x.Email == u.Email {
			return errs.ErrAlreadyExists
		}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	c := *u
	f.byID[u.ID] = &c
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id uuid.UUID, upd model.ProfileUpdate) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if upd.Email != nil {
		for _, x := range f.byID {
			if x.ID != id && x.Email == *upd.Email {
				return nil, errs.ErrAlreadyExists
			}
		}
		u.Email = *upd.Email
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.PasswordHash = hash
	f.passwordSets++
	return nil
}

func (f *fakeUsers) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched++
	if f.touchErr != nil {
		return f.touchErr
	}
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	return nil
}

type fakeTxs struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Transaction

	lastFilter model.TransactionFilter
	listErr    error
}

var _ repository.TransactionRepository = (*fakeTxs)(nil)

func newFakeTxs() *fakeTxs {
	return &fakeTxs{rows: map[uuid.UUID]model.Transaction{}}
}

func (f *fakeTxs) Create(_ context.Context, t *model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	f.rows[t.ID] = *t
	return nil
}

func (f *fakeTxs) Get(_ context.Context, userID, id uuid.UUID) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok || t.UserID != userID {
		return nil, errs.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTxs) List(_ context.Context, userID uuid.UUID, flt model.TransactionFilter) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = flt
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Transaction
	for _, t := range f.rows {
		if t.UserID != userID {
			continue
		}
		if flt.Type != "" && t.Type != flt.Type {
			continue
		}
		if flt.Category != "" && t.Category != flt.Category {
			continue
		}
		if !flt.From.IsZero() && t.Date.Before(flt.From) {
			continue
		}
		if !flt.To.IsZero() && t.Date.After(flt.To) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if flt.Offset > 0 {
		if flt.Offset >= len(out) {
			return nil, nil
		}
		out = out[flt.Offset:]
	}
	if flt.Limit > 0 && flt.Limit < len(out) {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeTxs) Update(_ context.Context, t *model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.rows[t.ID]
	if !ok || old.UserID != t.UserID {
		return errs.ErrNotFound
	}
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	f.rows[t.ID] = *t
	return nil
}

func (f *fakeTxs) Delete(_ context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok || t.UserID != userID {
		return errs.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}
