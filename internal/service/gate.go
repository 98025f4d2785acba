package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/budget-tracker/internal/errs"
	"github.com/and161185/budget-tracker/internal/model"
	"github.com/and161185/budget-tracker/internal/repository"
)

// AccessVerifier checks access tokens. Implemented by *token.Manager.
type AccessVerifier interface {
	VerifyAccess(raw string) (subject string, ok bool)
}

// Gate resolves the identity of a request from its Authorization header. It is
// the only way a request acquires a trusted user id.
type Gate struct {
	tokens AccessVerifier
	users  repository.UserRepository
}

// NewGate constructs a Gate.
func NewGate(tokens AccessVerifier, users repository.UserRepository) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Authenticate extracts and verifies the bearer token, then confirms the account
// still exists and is active. Every rejection wraps errs.ErrUnauthorized; only
// store faults come back without it.
func (g *Gate) Authenticate(ctx context.Context, authorization string) (model.Identity, error) {
	raw, ok := BearerToken(authorization)
	if !ok {
		return model.Identity{}, fmt.Errorf("%w: %w", errs.ErrUnauthorized, errs.ErrTokenInvalid)
	}
	sub, ok := g.tokens.VerifyAccess(raw)
	if !ok {
		return model.Identity{}, fmt.Errorf("%w: %w", errs.ErrUnauthorized, errs.ErrTokenInvalid)
	}
	u, err := liveUser(ctx, g.users, sub)
	if err != nil {
		return model.Identity{}, err
	}
	return model.Identity{UserID: u.ID, Role: u.Role}, nil
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
// The scheme is case-insensitive.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return "", false
	}
	return tok, true
}

// liveUser loads the subject's account and requires it to be active.
func liveUser(ctx context.Context, users repository.UserRepository, subject string) (*model.User, error) {
	id, err := uuid.FromString(subject)
	if err != nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrUnauthorized, errs.ErrTokenInvalid)
	}
	u, err := users.GetByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", errs.ErrUnauthorized, errs.ErrAccountInactive)
	}
	if err != nil {
		return nil, fmt.Errorf("liveness check: %w", err)
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: %w", errs.ErrUnauthorized, errs.ErrAccountInactive)
	}
	return u, nil
}
