package httpserver

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/budget-tracker/internal/errs"
	"github.com/and161185/budget-tracker/internal/model"
)

// Authenticator resolves the caller of a request. Implemented by *service.Gate.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (model.Identity, error)
}

// Logging logs one line per request with metadata only.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			// no bodies or headers, only metadata
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("route", routePattern(r)),
				zap.Int("status", ww.Status()),
				zap.Duration("dur", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// Recover turns a handler panic into a logged 500.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					writeErr(w, http.StatusInternalServerError, "", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate admits only requests the gate accepts and stores the identity
// in the request context.
func Authenticate(gate Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := gate.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				if errors.Is(err, errs.ErrUnauthorized) {
					RecordAuthAttempt("gate", false)
					log.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
					writeUnauthorized(w)
					return
				}
				log.Error("auth gate", zap.Error(err))
				writeErr(w, http.StatusInternalServerError, "", "internal error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole must run after Authenticate.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromCtx(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}
			if id.Role != role {
				writeErr(w, http.StatusForbidden, "", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
