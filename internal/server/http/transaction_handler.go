package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/budget-tracker/internal/convert"
	"github.com/and161185/budget-tracker/internal/model"
	"github.com/and161185/budget-tracker/internal/service"
)

// TransactionHandler serves /transactions/*. Every operation is scoped to the
// identity placed in context by Authenticate.
type TransactionHandler struct {
	tx       service.TransactionService
	validate *validator.Validate
	log      *zap.Logger
}

func NewTransactionHandler(tx service.TransactionService, validate *validator.Validate, log *zap.Logger) *TransactionHandler {
	return &TransactionHandler{tx: tx, validate: validate, log: log}
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	in, ok := h.input(w, r)
	if !ok {
		return
	}
	t, err := h.tx.Create(r.Context(), id.UserID, in)
	if err != nil {
		writeServiceErr(w, h.log, "create transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToTransactionResponse(*t))
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	f, ok := filter(w, r)
	if !ok {
		return
	}
	ts, err := h.tx.List(r.Context(), id.UserID, f)
	if err != nil {
		writeServiceErr(w, h.log, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToTransactionList(ts))
}

func (h *TransactionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	f, ok := filter(w, r)
	if !ok {
		return
	}
	s, err := h.tx.Summary(r.Context(), id.UserID, f)
	if err != nil {
		writeServiceErr(w, h.log, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToSummaryResponse(s))
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, txID, ok := h.target(w, r)
	if !ok {
		return
	}
	t, err := h.tx.Get(r.Context(), id.UserID, txID)
	if err != nil {
		writeServiceErr(w, h.log, "get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToTransactionResponse(*t))
}

func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, txID, ok := h.target(w, r)
	if !ok {
		return
	}
	in, ok := h.input(w, r)
	if !ok {
		return
	}
	t, err := h.tx.Update(r.Context(), id.UserID, txID, in)
	if err != nil {
		writeServiceErr(w, h.log, "update transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToTransactionResponse(*t))
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, txID, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.tx.Delete(r.Context(), id.UserID, txID); err != nil {
		writeServiceErr(w, h.log, "delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// target resolves the caller and the {id} path parameter.
func (h *TransactionHandler) target(w http.ResponseWriter, r *http.Request) (model.Identity, uuid.UUID, bool) {
	id, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return model.Identity{}, uuid.Nil, false
	}
	txID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "bad id")
		return model.Identity{}, uuid.Nil, false
	}
	return id, txID, true
}

func (h *TransactionHandler) input(w http.ResponseWriter, r *http.Request) (service.TransactionInput, bool) {
	var body convert.TransactionRequest
	if !bind(w, r, h.validate, &body) {
		return service.TransactionInput{}, false
	}
	in, err := body.Input()
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return service.TransactionInput{}, false
	}
	return in, true
}

func filter(w http.ResponseWriter, r *http.Request) (model.TransactionFilter, bool) {
	f, err := convert.FilterFromQuery(r.URL.Query())
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return f, false
	}
	return f, true
}
