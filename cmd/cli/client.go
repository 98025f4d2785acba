package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// apiError is a non-2xx response from the server.
type apiError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server: %d", e.Status)
	}
	return fmt.Sprintf("server: %d %s (%s)", e.Status, e.Message, e.Code)
}

// client talks to the API and keeps the stored token pair fresh.
type client struct {
	base string
	http *http.Client
	now  func() time.Time

	mu sync.Mutex // serializes refreshes
}

func newClient(base string) *client {
	return &client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
		now:  time.Now,
	}
}

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int64           `json:"expires_in"`
	User         json.RawMessage `json:"user,omitempty"`
}

// send performs one request. access may be empty.
func (c *client) send(ctx context.Context, method, path, access string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		ae := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(ae)
		return ae
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// call performs an authenticated request. An expired access token is refreshed
// before sending, and a 401 triggers one refresh and retry.
func (c *client) call(ctx context.Context, method, path string, in, out any) error {
	tf, err := loadTokens()
	if err != nil {
		return err
	}
	if tokenExpired(tf.AccessToken, c.now()) {
		if tf, err = c.refresh(ctx, tf); err != nil {
			return err
		}
	}
	err = c.send(ctx, method, path, tf.AccessToken, in, out)
	var ae *apiError
	if !errors.As(err, &ae) || ae.Status != http.StatusUnauthorized {
		return err
	}
	if tf, err = c.refresh(ctx, tf); err != nil {
		return err
	}
	return c.send(ctx, method, path, tf.AccessToken, in, out)
}

// refresh exchanges the stored refresh token. A rejected or expired refresh
// token ends the session.
func (c *client) refresh(ctx context.Context, tf tokenFile) (tokenFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// another call may already have refreshed
	if cur, err := loadTokens(); err == nil && cur.AccessToken != tf.AccessToken && !tokenExpired(cur.AccessToken, c.now()) {
		return cur, nil
	}
	if tokenExpired(tf.RefreshToken, c.now()) {
		_ = clearTokens()
		return tokenFile{}, errors.New("session expired (run: budget login)")
	}
	var tr tokenResponse
	err := c.send(ctx, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tf.RefreshToken}, &tr)
	var ae *apiError
	if errors.As(err, &ae) && ae.Status == http.StatusUnauthorized {
		_ = clearTokens()
		return tokenFile{}, errors.New("session expired (run: budget login)")
	}
	if err != nil {
		return tokenFile{}, err
	}
	next := tokenFile{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}
	if err := saveTokens(next); err != nil {
		return tokenFile{}, err
	}
	return next, nil
}

// login stores the issued pair and returns the raw user object.
func (c *client) login(ctx context.Context, email, password string) (json.RawMessage, error) {
	var tr tokenResponse
	if err := c.send(ctx, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password}, &tr); err != nil {
		return nil, err
	}
	if err := saveTokens(tokenFile{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}); err != nil {
		return nil, err
	}
	return tr.User, nil
}
