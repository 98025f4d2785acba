// Package token issues and verifies the signed access and refresh tokens.
//
// Both token classes are HS256 JWTs carrying the same subject but a distinct
// "type" claim, and each class has its own signing secret. A token of one class
// never verifies as the other: the secret differs and the type is checked.
package token

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/budget-tracker/internal/model"
)

// Kind is the value of the "type" claim.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Default lifetimes.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrEmptySecret = errors.New("token: empty signing secret")
	ErrSameSecret  = errors.New("token: access and refresh secrets must differ")
	ErrBadTTL      = errors.New("token: ttl must be positive")
	ErrEmptySubj   = errors.New("token: empty subject")
)

// Claims is the payload of both token classes.
type Claims struct {
	jwt.RegisteredClaims
	Type Kind `json:"type"`
}

// Config holds everything a Manager needs. Now defaults to time.Now.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

// class bundles the per-kind signing material.
type class struct {
	kind   Kind
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// Manager issues and verifies tokens. It is immutable and safe for concurrent use.
type Manager struct {
	access  class
	refresh class
	now     func() time.Time
}

// NewManager validates cfg and builds a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, ErrEmptySecret
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, ErrSameSecret
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, ErrBadTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	m := &Manager{now: now}
	m.access = m.newClass(KindAccess, cfg.AccessSecret, cfg.AccessTTL)
	m.refresh = m.newClass(KindRefresh, cfg.RefreshSecret, cfg.RefreshTTL)
	return m, nil
}

func (m *Manager) newClass(kind Kind, secret []byte, ttl time.Duration) class {
	return class{
		kind:   kind,
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(m.now),
		),
	}
}

// AccessTTL is the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.access.ttl }

// RefreshTTL is the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.refresh.ttl }

// IssueAccess signs a short-lived access token for subject.
func (m *Manager) IssueAccess(subject string) (model.IssuedToken, error) {
	return m.issue(m.access, subject)
}

// IssueRefresh signs a long-lived refresh token for subject.
func (m *Manager) IssueRefresh(subject string) (model.IssuedToken, error) {
	return m.issue(m.refresh, subject)
}

// IssuePair signs an access and a refresh token for subject.
func (m *Manager) IssuePair(subject string) (model.Tokens, error) {
	access, err := m.IssueAccess(subject)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, err := m.IssueRefresh(subject)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{Access: access, Refresh: refresh}, nil
}

// VerifyAccess returns the subject of a valid access token. ok is false for any
// failure; the cause is deliberately not reported.
func (m *Manager) VerifyAccess(raw string) (subject string, ok bool) {
	return m.verify(m.access, raw)
}

// VerifyRefresh returns the subject of a valid refresh token.
func (m *Manager) VerifyRefresh(raw string) (subject string, ok bool) {
	return m.verify(m.refresh, raw)
}

func (m *Manager) issue(c class, subject string) (model.IssuedToken, error) {
	if subject == "" {
		return model.IssuedToken{}, ErrEmptySubj
	}
	jti, err := uuid.NewV4()
	if err != nil {
		return model.IssuedToken{}, err
	}
	now := m.now()
	exp := now.Add(c.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti.String(),
		},
		Type: c.kind,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return model.IssuedToken{}, err
	}
	return model.IssuedToken{Value: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (m *Manager) verify(c class, raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	var claims Claims
	tok, err := c.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !tok.Valid {
		return "", false
	}
	if claims.Type != c.kind || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
