// Package service contains application services for authentication and transactions.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	pkgcrypto "github.com/and161185/budget-tracker/internal/crypto"
	"github.com/and161185/budget-tracker/internal/errs"
	"github.com/and161185/budget-tracker/internal/model"
	"github.com/and161185/budget-tracker/internal/repository"
	"github.com/and161185/budget-tracker/internal/token"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

// AuthService defines account and token operations.
type AuthService interface {
	// Register creates a new active account.
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	// Login checks credentials and issues a token pair.
	Login(ctx context.Context, email, password string) (model.Tokens, *model.User, error)
	// Refresh exchanges a valid refresh token for a new pair.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	// Me returns the caller's account.
	Me(ctx context.Context, userID uuid.UUID) (*model.User, error)
	// UpdateProfile changes names and/or email of the caller.
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd model.ProfileUpdate) (*model.User, error)
	// ChangePassword replaces the caller's credential after re-checking the current one.
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	// SetActive activates or deactivates an account.
	SetActive(ctx context.Context, userID uuid.UUID, active bool) error
}

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	passwords *pkgcrypto.PasswordManager
	tokens    *token.Manager
	hashSlots *semaphore.Weighted
	dummyHash string
	admins    map[string]struct{}
	log       *zap.Logger
}

// AuthOption customizes AuthServiceImpl.
type AuthOption func(*AuthServiceImpl)

// WithAdminEmails makes registrations with one of the given emails receive the
// admin role.
func WithAdminEmails(emails ...string) AuthOption {
	return func(s *AuthServiceImpl) {
		for _, e := range emails {
			if e = NormalizeEmail(e); e != "" {
				s.admins[e] = struct{}{}
			}
		}
	}
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, passwords *pkgcrypto.PasswordManager, tokens *token.Manager, log *zap.Logger, opts ...AuthOption) *AuthServiceImpl {
	s := &AuthServiceImpl{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		hashSlots: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		dummyHash: passwords.Hash("budget-tracker-dummy-password"),
		admins:    map[string]struct{}{},
		log:       log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user with a freshly hashed credential.
func (s *AuthServiceImpl) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || len(in.Password) < MinPasswordLen {
		return nil, fmt.Errorf("%w: email/password", errs.ErrValidation)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	hash, err := s.hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}
	role := model.RoleUser
	if _, ok := s.admins[email]; ok {
		role = model.RoleAdmin
	}
	u := &model.User{
		ID:           uid,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", uid.String()), zap.String("role", string(role)))
	return u, nil
}

// Login authenticates by email and password. Unknown email, wrong password and
// inactive account all yield errs.ErrInvalidCredentials.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (model.Tokens, *model.User, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, nil, err
	}

	stored := s.dummyHash
	if u != nil {
		stored = u.PasswordHash
	}
	match, err := s.verify(ctx, password, stored)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	if u == nil || !match || !u.IsActive {
		return model.Tokens{}, nil, errs.ErrInvalidCredentials
	}

	if s.passwords.NeedsRehash(u.PasswordHash) {
		if hash, err := s.hash(ctx, password); err == nil {
			if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
				s.log.Warn("credential upgrade failed", zap.String("user_id", u.ID.String()), zap.Error(err))
			} else {
				u.PasswordHash = hash
			}
		}
	}
	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		s.log.Warn("touch last login", zap.String("user_id", u.ID.String()), zap.Error(err))
	}

	tokens, err := s.tokens.IssuePair(u.ID.String())
	if err != nil {
		return model.Tokens{}, nil, err
	}
	return tokens, u, nil
}

// Refresh verifies the refresh token, re-checks the account and issues a new pair.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	sub, ok := s.tokens.VerifyRefresh(refreshToken)
	if !ok {
		return model.Tokens{}, fmt.Errorf("%w: %w", errs.ErrUnauthorized, errs.ErrTokenInvalid)
	}
	if _, err := liveUser(ctx, s.users, sub); err != nil {
		return model.Tokens{}, err
	}
	return s.tokens.IssuePair(sub)
}

// Me loads the caller's account.
func (s *AuthServiceImpl) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile normalizes and applies profile changes.
func (s *AuthServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, upd model.ProfileUpdate) (*model.User, error) {
	if upd.Email != nil {
		e := NormalizeEmail(*upd.Email)
		if e == "" {
			return nil, fmt.Errorf("%w: empty email", errs.ErrValidation)
		}
		upd.Email = &e
	}
	upd.FirstName = trimmed(upd.FirstName)
	upd.LastName = trimmed(upd.LastName)
	if (upd.FirstName != nil && *upd.FirstName == "") || (upd.LastName != nil && *upd.LastName == "") {
		return nil, fmt.Errorf("%w: blank name", errs.ErrValidation)
	}
	if upd.Empty() {
		return s.users.GetByID(ctx, userID)
	}
	return s.users.UpdateProfile(ctx, userID, upd)
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

// ChangePassword re-verifies the current password before storing a new credential.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if len(next) < MinPasswordLen {
		return fmt.Errorf("%w: new password too short", errs.ErrValidation)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	match, err := s.verify(ctx, current, u.PasswordHash)
	if err != nil {
		return err
	}
	if !match {
		return errs.ErrInvalidCredentials
	}
	hash, err := s.hash(ctx, next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.log.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}

// SetActive toggles an account's activity. Deactivation takes effect on the
// account's very next request because the gate re-checks liveness.
func (s *AuthServiceImpl) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return err
	}
	s.log.Info("account activity changed", zap.String("user_id", userID.String()), zap.Bool("active", active))
	return nil
}

// hash runs the CPU-heavy derivation inside a bounded slot.
func (s *AuthServiceImpl) hash(ctx context.Context, password string) (string, error) {
	if err := s.hashSlots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.hashSlots.Release(1)
	return s.passwords.Hash(password), nil
}

func (s *AuthServiceImpl) verify(ctx context.Context, password, encoded string) (bool, error) {
	if err := s.hashSlots.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer s.hashSlots.Release(1)
	return s.passwords.Verify(password, encoded), nil
}
