package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	pkgcrypto "github.com/and161185/budget-tracker/internal/crypto"
	"github.com/and161185/budget-tracker/internal/errs"
	"github.com/and161185/budget-tracker/internal/model"
	"github.com/and161185/budget-tracker/internal/token"
)

var cheapParams = pkgcrypto.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTokens(t *testing.T) *token.Manager {
	t.Helper()
	tm, err := token.NewManager(token.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	})
	require.NoError(t, err)
	return tm
}

func newAuth(t *testing.T) (*AuthServiceImpl, *fakeUsers, *token.Manager) {
	t.Helper()
	users := newFakeUsers()
	tm := newTokens(t)
	s := NewAuthService(users, pkgcrypto.NewPasswordManager(cheapParams), tm, zaptest.NewLogger(t))
	return s, users, tm
}

func register(t *testing.T, s *AuthServiceImpl, email, pw string) *model.User {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterInput{Email: email, Password: pw, FirstName: "Ann", LastName: "Lee"})
	require.NoError(t, err)
	return u
}

func TestAuth_Register(t *testing.T) {
	t.Parallel()
	s, users, _ := newAuth(t)
	ctx := context.Background()

	u := register(t, s, "  Alice@Example.COM ", "secret1")
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, model.RoleUser, u.Role)
	require.True(t, u.IsActive)
	require.False(t, u.IsVerified)
	require.True(t, strings.HasPrefix(u.PasswordHash, "$argon2id$"))
	require.NotContains(t, u.PasswordHash, "secret1")

	_, err := s.Register(ctx, RegisterInput{Email: "ALICE@example.com", Password: "another"})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	_, err = s.Register(ctx, RegisterInput{Email: "", Password: "secret1"})
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = s.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "short"})
	require.ErrorIs(t, err, errs.ErrValidation)

	users.createErr = errors.New("boom")
	_, err = s.Register(ctx, RegisterInput{Email: "carol@example.com", Password: "secret1"})
	require.EqualError(t, err, "boom")
}

func TestAuth_Login(t *testing.T) {
	t.Parallel()
	s, users, tm := newAuth(t)
	ctx := context.Background()
	u := register(t, s, "alice@example.com", "secret1")

	pair, got, err := s.Login(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, 1, users.touched)

	sub, ok := tm.VerifyAccess(pair.Access.Value)
	require.True(t, ok)
	require.Equal(t, u.ID.String(), sub)
	sub, ok = tm.VerifyRefresh(pair.Refresh.Value)
	require.True(t, ok)
	require.Equal(t, u.ID.String(), sub)
	require.WithinDuration(t, time.Now().Add(30*time.Minute), pair.Access.ExpiresAt, 5*time.Second)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
}

func TestAuth_Login_FailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()
	s, users, _ := newAuth(t)
	ctx := context.Background()
	u := register(t, s, "alice@example.com", "secret1")

	_, _, err := s.Login(ctx, "alice@example.com", "wrong-pw")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, _, errUnknown := s.Login(ctx, "nobody@example.com", "secret1")
	require.ErrorIs(t, errUnknown, errs.ErrInvalidCredentials)
	require.Equal(t, err.Error(), errUnknown.Error())

	require.NoError(t, users.SetActive(ctx, u.ID, false))
	_, _, err = s.Login(ctx, "alice@example.com", "secret1")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)
	require.Equal(t, 0, users.touched)
}

func TestAuth_Login_StoreFaultPropagates(t *testing.T) {
	t.Parallel()
	s, users, _ := newAuth(t)
	boom := errors.New("db down")
	users.getErr = boom

	_, _, err := s.Login(context.Background(), "alice@example.com", "secret1")
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, errs.ErrInvalidCredentials)
}

func TestAuth_Login_TouchFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	s, users, _ := newAuth(t)
	register(t, s, "alice@example.com", "secret1")
	users.touchErr = errors.New("touch failed")

	_, _, err := s.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)
}

func TestAuth_Login_UpgradesLegacyBcrypt(t *testing.T) {
	t.Parallel()
	s, users, _ := newAuth(t)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Email: "old@example.com", PasswordHash: string(legacy), Role: model.RoleUser, IsActive: true}
	users.put(u)

	_, _, err = s.Login(ctx, "old@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, 1, users.passwordSets)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))

	_, _, err = s.Login(ctx, "old@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, 1, users.passwordSets, "current credential must not be rehashed")
}

func TestAuth_Refresh(t *testing.T) {
	t.Parallel()
	s, users, tm := newAuth(t)
	ctx := context.Background()
	u := register(t, s, "alice@example.com", "secret1")

	pair, _, err := s.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)

	next, err := s.Refresh(ctx, pair.Refresh.Value)
	require.NoError(t, err)
	sub, ok := tm.VerifyAccess(next.Access.Value)
	require.True(t, ok)
	require.Equal(t, u.ID.String(), sub)

	_, err = s.Refresh(ctx, pair.Access.Value)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.ErrorIs(t, err, errs.ErrTokenInvalid)

	_, err = s.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	require.NoError(t, users.SetActive(ctx, u.ID, false))
	_, err = s.Refresh(ctx, pair.Refresh.Value)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.ErrorIs(t, err, errs.ErrAccountInactive)
}

func TestAuth_UpdateProfile(t *testing.T) {
	t.Parallel()
	s, _, _ := newAuth(t)
	ctx := context.Background()
	u := register(t, s, "alice@example.com", "secret1")
	register(t, s, "bob@example.com", "secret1")

	first := "Alicia"
	got, err := s.UpdateProfile(ctx, u.ID, model.ProfileUpdate{FirstName: &first})
	require.NoError(t, err)
	require.Equal(t, "Alicia", got.FirstName)
	require.Equal(t, "Lee", got.LastName)

	email := " NEW@Example.com"
	got, err = s.UpdateProfile(ctx, u.ID, model.ProfileUpdate{Email: &email})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", got.Email)

	taken := "bob@example.com"
	_, err = s.UpdateProfile(ctx, u.ID, model.ProfileUpdate{Email: &taken})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	blank := "   "
	_, err = s.UpdateProfile(ctx, u.ID, model.ProfileUpdate{Email: &blank})
	require.ErrorIs(t, err, errs.ErrValidation)

	got, err = s.UpdateProfile(ctx, u.ID, model.ProfileUpdate{})
	require.NoError(t, err)
	require.Equal(t, "Alicia", got.FirstName)

	padFirst, padLast := "  Ally ", "\tLee-Smith  "
	got, err = s.UpdateProfile(ctx, u.ID, model.ProfileUpdate{FirstName: &padFirst, LastName: &padLast})
	require.NoError(t, err)
	require.Equal(t, "Ally", got.FirstName)
	require.Equal(t, "Lee-Smith", got.LastName)

	_, err = s.UpdateProfile(ctx, u.ID, model.ProfileUpdate{LastName: &blank})
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestAuth_ChangePassword(t *testing.T) {
	t.Parallel()
	s, _, _ := newAuth(t)
	ctx := context.Background()
	u := register(t, s, "alice@example.com", "secret1")

	require.ErrorIs(t, s.ChangePassword(ctx, u.ID, "wrong", "secret2"), errs.ErrInvalidCredentials)
	require.ErrorIs(t, s.ChangePassword(ctx, u.ID, "secret1", "abc"), errs.ErrValidation)
	require.ErrorIs(t, s.ChangePassword(ctx, uuid.Must(uuid.NewV4()), "secret1", "secret2"), errs.ErrNotFound)

	require.NoError(t, s.ChangePassword(ctx, u.ID, "secret1", "secret2"))

	_, _, err := s.Login(ctx, "alice@example.com", "secret1")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)
	_, _, err = s.Login(ctx, "alice@example.com", "secret2")
	require.NoError(t, err)
}

func TestAuth_SetActive(t *testing.T) {
	t.Parallel()
	s, users, _ := newAuth(t)
	ctx := context.Background()
	u := register(t, s, "alice@example.com", "secret1")

	require.ErrorIs(t, s.SetActive(ctx, uuid.Nil, false), errs.ErrValidation)
	require.ErrorIs(t, s.SetActive(ctx, uuid.Must(uuid.NewV4()), false), errs.ErrNotFound)

	require.NoError(t, s.SetActive(ctx, u.ID, false))
	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, stored.IsActive)

	require.NoError(t, s.SetActive(ctx, u.ID, true))
	stored, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, stored.IsActive)
}

func TestAuth_CancelledContextStopsHashing(t *testing.T) {
	t.Parallel()
	s, _, _ := newAuth(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "secret1"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAuth_AdminEmails(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	s := NewAuthService(users, pkgcrypto.NewPasswordManager(cheapParams), newTokens(t), zaptest.NewLogger(t),
		WithAdminEmails(" Root@Example.com", ""))

	admin := register(t, s, "root@example.com", "secret1")
	require.Equal(t, model.RoleAdmin, admin.Role)

	plain := register(t, s, "alice@example.com", "secret1")
	require.Equal(t, model.RoleUser, plain.Role)
}
