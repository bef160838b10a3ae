package cashbook

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/auth"
	"github.com/frahmantamala/garment-erp/internal/transport"
)

type ServiceAPI interface {
	CreateEntry(ctx context.Context, actor *auth.User, dto CreateEntryDTO) (*Entry, error)
	GetEntry(ctx context.Context, id int64) (*Entry, error)
	ListEntries(ctx context.Context, filter Filter) (*EntryList, error)
	UpdateEntry(ctx context.Context, actor *auth.User, id int64, dto UpdateEntryDTO) (*Entry, error)
	DeleteEntry(ctx context.Context, actor *auth.User, id int64) error
	Balance(ctx context.Context, from, to *time.Time) (*Balance, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	list, err := h.Service.ListEntries(r.Context(), Filter{
		From:      from,
		To:        to,
		EntryType: q.Get("type"),
		Head:      q.Get("head"),
		Limit:     h.QueryInt(r, "limit", DefaultListLimit),
		Offset:    h.QueryInt(r, "offset", 0),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	balance, err := h.Service.Balance(r.Context(), from, to)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, balance)
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto CreateEntryDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	entry, err := h.Service.CreateEntry(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	entry, err := h.Service.GetEntry(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateEntryDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	entry, err := h.Service.UpdateEntry(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.DeleteEntry(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) dateRange(w http.ResponseWriter, r *http.Request) (*time.Time, *time.Time, bool) {
	var from, to *time.Time
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		t, err := ParseDate(raw)
		if err != nil {
			h.WriteAppError(w, err)
			return nil, nil, false
		}
		from = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := ParseDate(raw)
		if err != nil {
			h.WriteAppError(w, err)
			return nil, nil, false
		}
		to = &t
	}
	return from, to, true
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return nil, false
	}
	return u, true
}
