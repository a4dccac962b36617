package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/pos-pricing/internal/common"
)

// Handler exposes item lookup endpoints for the point-of-sale picker.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Search handles GET /api/v1/items.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	term := r.URL.Query().Get("q")
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 50)
	items, err := h.service.Search(r.Context(), term, limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "item search failed", nil)
		return
	}
	if items == nil {
		items = []Item{}
	}
	common.JSONData(w, http.StatusOK, items)
}

// Item handles GET /api/v1/items/{code}.
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	code := chi.URLParam(r, "code")
	item, ok, err := h.service.ItemByCode(r.Context(), code)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "item lookup failed", nil)
		return
	}
	if !ok {
		common.JSONAppError(w, common.NewAppError("NOT_FOUND", "item not found", http.StatusNotFound, nil))
		return
	}
	common.JSONData(w, http.StatusOK, item)
}
