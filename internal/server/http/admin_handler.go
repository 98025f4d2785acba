package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/budget-tracker/internal/convert"
	"github.com/and161185/budget-tracker/internal/service"
)

// AdminHandler serves /admin/*. Routes are mounted behind RequireRole(admin).
type AdminHandler struct {
	auth     service.AuthService
	validate *validator.Validate
	log      *zap.Logger
}

func NewAdminHandler(auth service.AuthService, validate *validator.Validate, log *zap.Logger) *AdminHandler {
	return &AdminHandler{auth: auth, validate: validate, log: log}
}

// SetActive activates or deactivates the account named in the path.
func (h *AdminHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "bad id")
		return
	}
	var body convert.SetActiveRequest
	if !bind(w, r, h.validate, &body) {
		return
	}
	if err := h.auth.SetActive(r.Context(), userID, *body.IsActive); err != nil {
		writeServiceErr(w, h.log, "set active", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": userID.String(), "is_active": *body.IsActive})
}
