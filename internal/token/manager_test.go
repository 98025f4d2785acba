package token

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var (
	accessKey  = []byte("access-secret-for-tests")
	refreshKey = []byte("refresh-secret-for-tests")
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 4, 26, 12, 0, 0, 0, time.UTC)}
}

func newManager(t *testing.T, clk *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{AccessSecret: accessKey, RefreshSecret: refreshKey, Now: clk.Now})
	require.NoError(t, err)
	return m
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewManager(Config{RefreshSecret: refreshKey})
	require.ErrorIs(t, err, ErrEmptySecret)

	_, err = NewManager(Config{AccessSecret: accessKey, RefreshSecret: accessKey})
	require.ErrorIs(t, err, ErrSameSecret)

	_, err = NewManager(Config{AccessSecret: accessKey, RefreshSecret: refreshKey, AccessTTL: -time.Second})
	require.ErrorIs(t, err, ErrBadTTL)

	m, err := NewManager(Config{AccessSecret: accessKey, RefreshSecret: refreshKey})
	require.NoError(t, err)
	require.Equal(t, 30*time.Minute, m.AccessTTL())
	require.Equal(t, 7*24*time.Hour, m.RefreshTTL())
}

func TestIssueAndVerify_Roundtrip(t *testing.T) {
	t.Parallel()

	clk := newClock()
	m := newManager(t, clk)

	at, err := m.IssueAccess("user-1")
	require.NoError(t, err)
	require.Equal(t, clk.Now().Add(30*time.Minute), at.ExpiresAt)
	require.Len(t, strings.Split(at.Value, "."), 3)

	sub, ok := m.VerifyAccess(at.Value)
	require.True(t, ok)
	require.Equal(t, "user-1", sub)

	rt, err := m.IssueRefresh("user-1")
	require.NoError(t, err)
	require.Equal(t, clk.Now().Add(7*24*time.Hour), rt.ExpiresAt)

	sub, ok = m.VerifyRefresh(rt.Value)
	require.True(t, ok)
	require.Equal(t, "user-1", sub)
}

func TestIssue_EmptySubject(t *testing.T) {
	t.Parallel()

	m := newManager(t, newClock())
	_, err := m.IssueAccess("")
	require.ErrorIs(t, err, ErrEmptySubj)
	_, err = m.IssueRefresh("")
	require.ErrorIs(t, err, ErrEmptySubj)
}

func TestIssue_FreshTokenEachCall(t *testing.T) {
	t.Parallel()

	clk := newClock()
	m := newManager(t, clk)

	a1, err := m.IssueAccess("u")
	require.NoError(t, err)
	a2, err := m.IssueAccess("u")
	require.NoError(t, err)
	require.NotEqual(t, a1.Value, a2.Value)

	clk.Advance(time.Minute)
	a3, err := m.IssueAccess("u")
	require.NoError(t, err)
	require.True(t, a3.ExpiresAt.After(a1.ExpiresAt))
}

func TestVerify_CrossKindRejected(t *testing.T) {
	t.Parallel()

	m := newManager(t, newClock())
	pair, err := m.IssuePair("u")
	require.NoError(t, err)

	_, ok := m.VerifyRefresh(pair.Access.Value)
	require.False(t, ok, "access token must not pass as refresh")
	_, ok = m.VerifyAccess(pair.Refresh.Value)
	require.False(t, ok, "refresh token must not pass as access")
}

func TestVerify_WrongTypeWithCorrectSecret(t *testing.T) {
	t.Parallel()

	clk := newClock()
	m := newManager(t, clk)
	reg := jwt.RegisteredClaims{
		Subject:   "u",
		IssuedAt:  jwt.NewNumericDate(clk.Now()),
		ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
	}

	asRefresh := sign(t, jwt.SigningMethodHS256, accessKey, Claims{RegisteredClaims: reg, Type: KindRefresh})
	_, ok := m.VerifyAccess(asRefresh)
	require.False(t, ok)

	asAccess := sign(t, jwt.SigningMethodHS256, refreshKey, Claims{RegisteredClaims: reg, Type: KindAccess})
	_, ok = m.VerifyRefresh(asAccess)
	require.False(t, ok)

	untyped := sign(t, jwt.SigningMethodHS256, accessKey, reg)
	_, ok = m.VerifyAccess(untyped)
	require.False(t, ok)
}

func TestVerify_ForeignSecretRejected(t *testing.T) {
	t.Parallel()

	clk := newClock()
	m := newManager(t, clk)
	other, err := NewManager(Config{AccessSecret: []byte("other-a"), RefreshSecret: []byte("other-r"), Now: clk.Now})
	require.NoError(t, err)

	pair, err := other.IssuePair("u")
	require.NoError(t, err)

	_, ok := m.VerifyAccess(pair.Access.Value)
	require.False(t, ok)
	_, ok = m.VerifyRefresh(pair.Refresh.Value)
	require.False(t, ok)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	clk := newClock()
	m := newManager(t, clk)

	at, err := m.IssueAccess("u")
	require.NoError(t, err)
	rt, err := m.IssueRefresh("u")
	require.NoError(t, err)

	clk.Advance(30*time.Minute - time.Second)
	_, ok := m.VerifyAccess(at.Value)
	require.True(t, ok, "access token valid one second before expiry")

	clk.Advance(time.Second)
	_, ok = m.VerifyAccess(at.Value)
	require.False(t, ok, "access token invalid at expiry")

	_, ok = m.VerifyRefresh(rt.Value)
	require.True(t, ok, "refresh token outlives access token")

	clk.Advance(7*24*time.Hour - 30*time.Minute)
	_, ok = m.VerifyRefresh(rt.Value)
	require.False(t, ok, "refresh token invalid at expiry")
}

func TestVerify_PastExpiryRejectedDespiteValidSignature(t *testing.T) {
	t.Parallel()

	clk := newClock()
	m := newManager(t, clk)
	expired := sign(t, jwt.SigningMethodHS256, accessKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			IssuedAt:  jwt.NewNumericDate(clk.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(-time.Hour)),
		},
		Type: KindAccess,
	})
	_, ok := m.VerifyAccess(expired)
	require.False(t, ok)
}

func TestVerify_MissingExpiryRejected(t *testing.T) {
	t.Parallel()

	m := newManager(t, newClock())
	noExp := sign(t, jwt.SigningMethodHS256, accessKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u"},
		Type:             KindAccess,
	})
	_, ok := m.VerifyAccess(noExp)
	require.False(t, ok)
}

func TestVerify_OtherAlgorithmsRejected(t *testing.T) {
	t.Parallel()

	clk := newClock()
	m := newManager(t, clk)
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			IssuedAt:  jwt.NewNumericDate(clk.Now()),
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
		Type: KindAccess,
	}

	hs384 := sign(t, jwt.SigningMethodHS384, accessKey, c)
	_, ok := m.VerifyAccess(hs384)
	require.False(t, ok)

	none := sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, c)
	_, ok = m.VerifyAccess(none)
	require.False(t, ok)
}

func TestVerify_MalformedRejected(t *testing.T) {
	t.Parallel()

	m := newManager(t, newClock())
	at, err := m.IssueAccess("u")
	require.NoError(t, err)
	parts := strings.Split(at.Value, ".")

	for name, raw := range map[string]string{
		"empty":          "",
		"garbage":        "not-a-jwt",
		"two segments":   parts[0] + "." + parts[1],
		"bad signature":  parts[0] + "." + parts[1] + ".AAAA",
		"swapped body":   parts[0] + "." + parts[0] + "." + parts[2],
		"trailing space": at.Value + " ",
	} {
		_, ok := m.VerifyAccess(raw)
		require.False(t, ok, name)
	}
}

func TestVerify_TamperedPayloadRejected(t *testing.T) {
	t.Parallel()

	clk := newClock()
	m := newManager(t, clk)
	at, err := m.IssueAccess("victim")
	require.NoError(t, err)

	forged := sign(t, jwt.SigningMethodHS256, []byte("attacker"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(clk.Now()),
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
		Type: KindAccess,
	})
	orig := strings.Split(at.Value, ".")
	fake := strings.Split(forged, ".")

	_, ok := m.VerifyAccess(orig[0] + "." + fake[1] + "." + orig[2])
	require.False(t, ok)
}
