package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/and161185/budget-tracker/internal/convert"
	"github.com/and161185/budget-tracker/internal/errs"
	"github.com/and161185/budget-tracker/internal/service"
)

// AuthHandler serves /auth/*.
type AuthHandler struct {
	auth      service.AuthService
	accessTTL time.Duration
	validate  *validator.Validate
	log       *zap.Logger
}

// NewAuthHandler constructs AuthHandler. accessTTL is reported as expires_in.
func NewAuthHandler(auth service.AuthService, accessTTL time.Duration, validate *validator.Validate, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, accessTTL: accessTTL, validate: validate, log: log}
}

// Register creates an account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body convert.RegisterRequest
	if !h.bind(w, r, &body) {
		return
	}
	u, err := h.auth.Register(r.Context(), body.Input())
	RecordAuthAttempt("register", err == nil)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			writeErr(w, http.StatusConflict, "", "email already registered")
			return
		}
		writeServiceErr(w, h.log, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToUserResponse(*u))
}

// Login exchanges credentials for a token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body convert.LoginRequest
	if !h.bind(w, r, &body) {
		return
	}
	toks, u, err := h.auth.Login(r.Context(), body.Email, body.Password)
	RecordAuthAttempt("login", err == nil)
	if err != nil {
		writeServiceErr(w, h.log, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToTokenResponse(toks, h.accessTTL, u))
}

// Refresh exchanges a refresh token for a new pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body convert.RefreshRequest
	if !h.bind(w, r, &body) {
		return
	}
	toks, err := h.auth.Refresh(r.Context(), body.RefreshToken)
	RecordAuthAttempt("refresh", err == nil)
	if err != nil {
		writeServiceErr(w, h.log, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToTokenResponse(toks, h.accessTTL, nil))
}

// Me returns the caller's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	u, err := h.auth.Me(r.Context(), id.UserID)
	if err != nil {
		writeServiceErr(w, h.log, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToUserResponse(*u))
}

// UpdateProfile changes the caller's names or email.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	var body convert.ProfileRequest
	if !h.bind(w, r, &body) {
		return
	}
	u, err := h.auth.UpdateProfile(r.Context(), id.UserID, body.Update())
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			writeErr(w, http.StatusConflict, "", "email already registered")
			return
		}
		writeServiceErr(w, h.log, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToUserResponse(*u))
}

// ChangePassword replaces the caller's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	var body convert.ChangePasswordRequest
	if !h.bind(w, r, &body) {
		return
	}
	err := h.auth.ChangePassword(r.Context(), id.UserID, body.CurrentPassword, body.NewPassword)
	if err != nil {
		// the caller is authenticated; a wrong current password is a bad request, not a 401
		if errors.Is(err, errs.ErrInvalidCredentials) {
			writeErr(w, http.StatusBadRequest, ErrCodeInvalidCredentials, "current password is incorrect")
			return
		}
		writeServiceErr(w, h.log, "change password", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// bind decodes and validates the body, writing a 400 on failure.
func (h *AuthHandler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	return bind(w, r, h.validate, dst)
}

func bind(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return false
	}
	return true
}
