package report

import (
	"context"
	"net/http"

	"github.com/frahmantamala/garment-erp/internal/production"
	"github.com/frahmantamala/garment-erp/internal/transport"
)

type ServiceAPI interface {
	ProductionSummary(ctx context.Context, r Range) (*ProductionSummary, error)
	CashbookSummary(ctx context.Context, r Range) (*CashbookSummary, error)
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

func (h *Handler) ProductionSummary(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	summary, err := h.Service.ProductionSummary(r.Context(), rng)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) CashbookSummary(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	summary, err := h.Service.CashbookSummary(r.Context(), rng)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (Range, bool) {
	var rng Range
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		t, err := production.ParseDate(raw)
		if err != nil {
			h.WriteAppError(w, err)
			return Range{}, false
		}
		rng.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := production.ParseDate(raw)
		if err != nil {
			h.WriteAppError(w, err)
			return Range{}, false
		}
		rng.To = &t
	}
	return rng, true
}
