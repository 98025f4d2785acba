package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/budget-tracker/internal/errs"
)

const maxBodyBytes = 1 << 20

// writeErr sends JSON { "error": message, "code": errCode }. If errCode is empty, a default is used from code.
func writeErr(w http.ResponseWriter, code int, errCode string, message string) {
	if errCode == "" {
		errCode = defaultErrCode(code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": errCode})
}

func defaultErrCode(httpCode int) string {
	switch httpCode {
	case http.StatusBadRequest:
		return ErrCodeInvalidRequest
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	default:
		return ErrCodeInternal
	}
}

// writeUnauthorized is the single response for every authentication failure.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// writeServiceErr maps service errors to HTTP responses. Unknown errors are
// logged and reported without detail.
func writeServiceErr(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		writeUnauthorized(w)
	case errors.Is(err, errs.ErrInvalidCredentials):
		writeErr(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "incorrect email or password")
	case errors.Is(err, errs.ErrValidation):
		writeErr(w, http.StatusBadRequest, "", err.Error())
	case errors.Is(err, errs.ErrAlreadyExists):
		writeErr(w, http.StatusConflict, "", "already exists")
	case errors.Is(err, errs.ErrNotFound):
		writeErr(w, http.StatusNotFound, "", "not found")
	case errors.Is(err, errs.ErrForbidden):
		writeErr(w, http.StatusForbidden, "", "forbidden")
	default:
		log.Error(op+" failed", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "", "internal error")
	}
}
