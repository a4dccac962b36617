package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-pricing/internal/common"
	"github.com/noah-isme/pos-pricing/internal/engine"
	"github.com/noah-isme/pos-pricing/internal/rules"
)

// RuleProvider loads the rule set for a commercial context.
type RuleProvider interface {
	Load(ctx context.Context, rctx rules.Context) (*rules.Index, error)
	Rules(ctx context.Context, rctx rules.Context) ([]rules.Rule, error)
}

// Handler wires cart sessions and rule evaluation to HTTP.
type Handler struct {
	Manager  *Manager
	Rules    RuleProvider
	Catalog  CatalogLookup
	Validate *validator.Validate
	Log      zerolog.Logger
}

type contextPayload struct {
	Company        string  `json:"company"`
	PriceList      string  `json:"price_list" validate:"required"`
	Currency       string  `json:"currency" validate:"required"`
	Customer       string  `json:"customer"`
	CustomerGroup  string  `json:"customer_group"`
	Territory      string  `json:"territory"`
	Date           string  `json:"date"`
	ConversionRate float64 `json:"conversion_rate"`
}

func (p contextPayload) toContext() rules.Context {
	rctx := rules.Context{
		Company:        strings.TrimSpace(p.Company),
		PriceList:      strings.TrimSpace(p.PriceList),
		Currency:       strings.TrimSpace(p.Currency),
		Customer:       strings.TrimSpace(p.Customer),
		CustomerGroup:  strings.TrimSpace(p.CustomerGroup),
		Territory:      strings.TrimSpace(p.Territory),
		ConversionRate: p.ConversionRate,
		Date:           time.Now(),
	}
	if d := strings.TrimSpace(p.Date); d != "" {
		if t, err := time.Parse("2006-01-02", d); err == nil {
			rctx.Date = t
		}
	}
	return rctx
}

func (h *Handler) decodeAndValidate(r *http.Request, dst any) *common.AppError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.NewAppError("BAD_REQUEST", "invalid JSON payload", http.StatusBadRequest, err)
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			return common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
		}
	}
	return nil
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) *Session {
	id := chi.URLParam(r, "id")
	s, err := h.Manager.Get(id)
	if err != nil {
		common.JSONAppError(w, common.NewAppError("NOT_FOUND", "cart not found", http.StatusNotFound, err))
		return nil
	}
	return s
}

func cartBody(s *Session) map[string]any {
	return map[string]any{
		"cart_id": s.ID,
		"context": s.Context(),
		"lines":   s.Lines(),
		"totals":  s.Totals(),
	}
}

// Create handles POST /api/v1/carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Context contextPayload `json:"context" validate:"required"`
	}
	if aerr := h.decodeAndValidate(r, &payload); aerr != nil {
		common.JSONAppError(w, aerr)
		return
	}
	rctx := payload.Context.toContext()
	index, err := h.Rules.Load(r.Context(), rctx)
	if err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "RULES_UNAVAILABLE", "pricing rules unavailable", nil)
		return
	}
	s := h.Manager.Create(rctx, index)
	common.JSONData(w, http.StatusCreated, cartBody(s))
}

// Get handles GET /api/v1/carts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	common.JSONData(w, http.StatusOK, cartBody(s))
}

// Delete handles DELETE /api/v1/carts/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	h.Manager.Drop(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

// SetContext handles PUT /api/v1/carts/{id}/context. Changing customer,
// price list or currency swaps the rule index and reprices everything.
func (h *Handler) SetContext(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var payload contextPayload
	if aerr := h.decodeAndValidate(r, &payload); aerr != nil {
		common.JSONAppError(w, aerr)
		return
	}
	rctx := payload.toContext()
	index, err := h.Rules.Load(r.Context(), rctx)
	if err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "RULES_UNAVAILABLE", "pricing rules unavailable", nil)
		return
	}
	s.SetContext(rctx, index)
	common.JSONData(w, http.StatusOK, cartBody(s))
}

type addLinePayload struct {
	ItemCode string  `json:"item_code" validate:"required"`
	Qty      float64 `json:"qty" validate:"gt=0"`
	UOM      string  `json:"uom"`
	Rate     float64 `json:"rate"`
}

// AddLine handles POST /api/v1/carts/{id}/lines. Item metadata and the
// price list rate come from the catalog; an explicit rate pins the line.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var payload addLinePayload
	if aerr := h.decodeAndValidate(r, &payload); aerr != nil {
		common.JSONAppError(w, aerr)
		return
	}

	line := &Line{
		RowID:    uuid.NewString(),
		ItemCode: strings.TrimSpace(payload.ItemCode),
		Qty:      payload.Qty,
		UOM:      strings.TrimSpace(payload.UOM),
	}
	if h.Catalog != nil {
		item, ok, err := h.Catalog.ItemByCode(r.Context(), line.ItemCode)
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "item lookup failed", nil)
			return
		}
		if !ok {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown item", nil)
			return
		}
		line.ItemName = item.Name
		line.ItemGroup = item.ItemGroup
		line.Brand = item.Brand
		line.StockUOM = item.StockUOM
		line.ConversionFactor = item.ConversionFactor
		if line.UOM == "" {
			line.UOM = item.UOM
		}
		line.BasePriceListRate = item.PriceListRate
		line.PriceListRate = item.PriceListRate
		line.BaseRate = item.PriceListRate
		line.Rate = item.PriceListRate
	}
	if payload.Rate > 0 {
		line.BaseRate = payload.Rate
		line.Rate = payload.Rate
		line.ManualRateSet = true
	}
	line.Amount = line.Rate * line.Qty
	line.BaseAmount = line.BaseRate * line.Qty

	s.AddLine(line)
	common.JSONData(w, http.StatusCreated, line)
}

type updateLinePayload struct {
	Qty  *float64 `json:"qty"`
	Rate *float64 `json:"rate"`
}

// UpdateLine handles PATCH /api/v1/carts/{id}/lines/{rowID}. A rate in
// the payload is a manual override and pins the line.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	rowID := chi.URLParam(r, "rowID")
	var payload updateLinePayload
	if aerr := h.decodeAndValidate(r, &payload); aerr != nil {
		common.JSONAppError(w, aerr)
		return
	}
	if payload.Qty == nil && payload.Rate == nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "nothing to update", nil)
		return
	}
	if payload.Qty != nil {
		if *payload.Qty <= 0 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "qty must be positive", nil)
			return
		}
		if !s.UpdateQty(rowID, *payload.Qty) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "line not found", nil)
			return
		}
	}
	if payload.Rate != nil {
		if !s.SetManualRate(rowID, *payload.Rate) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "line not found", nil)
			return
		}
	}
	common.JSONData(w, http.StatusOK, cartBody(s))
}

// RemoveLine handles DELETE /api/v1/carts/{id}/lines/{rowID}.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if !s.RemoveLine(chi.URLParam(r, "rowID")) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "line not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recalculate handles POST /api/v1/carts/{id}/recalculate. It bypasses
// the debounce and returns the repriced cart synchronously.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	s.ApplyPricingRules(r.Context(), true)
	common.JSONData(w, http.StatusOK, cartBody(s))
}

type evaluatePayload struct {
	Context       contextPayload `json:"context" validate:"required"`
	ItemCode      string         `json:"item_code" validate:"required"`
	ItemGroup     string         `json:"item_group"`
	Brand         string         `json:"brand"`
	Qty           float64        `json:"qty" validate:"gt=0"`
	StockQty      float64        `json:"stock_qty"`
	BaseRate      float64        `json:"base_rate"`
	PriceListRate float64        `json:"price_list_rate"`
}

// Evaluate handles POST /api/v1/pricing/evaluate: one stateless rule
// evaluation without a cart session.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var payload evaluatePayload
	if aerr := h.decodeAndValidate(r, &payload); aerr != nil {
		common.JSONAppError(w, aerr)
		return
	}
	rctx := payload.Context.toContext()
	index, err := h.Rules.Load(r.Context(), rctx)
	if err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "RULES_UNAVAILABLE", "pricing rules unavailable", nil)
		return
	}
	base := payload.BaseRate
	if base == 0 {
		base = payload.PriceListRate
	}
	res := engine.Evaluate(engine.Input{
		Item: rules.ItemRef{
			Code:  strings.TrimSpace(payload.ItemCode),
			Group: strings.TrimSpace(payload.ItemGroup),
			Brand: strings.TrimSpace(payload.Brand),
		},
		Qty:           payload.Qty,
		StockQty:      payload.StockQty,
		BaseRate:      base,
		PriceListRate: payload.PriceListRate,
		Ctx:           rctx,
		Index:         index,
	})
	common.JSONData(w, http.StatusOK, res)
}

// RulesSnapshot handles GET /api/v1/rules: the active rule set for the
// context given in query parameters.
func (h *Handler) RulesSnapshot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	company := strings.TrimSpace(q.Get("company"))
	priceList := strings.TrimSpace(q.Get("price_list"))
	if company == "" || priceList == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "company and price_list are required", nil)
		return
	}
	rctx := rules.Context{
		Company:       company,
		PriceList:     priceList,
		Currency:      strings.TrimSpace(q.Get("currency")),
		Customer:      strings.TrimSpace(q.Get("customer")),
		CustomerGroup: strings.TrimSpace(q.Get("customer_group")),
		Territory:     strings.TrimSpace(q.Get("territory")),
		Date:          time.Now(),
	}
	if d := strings.TrimSpace(q.Get("date")); d != "" {
		if t, err := time.Parse("2006-01-02", d); err == nil {
			rctx.Date = t
		}
	}
	rs, err := h.Rules.Rules(r.Context(), rctx)
	if err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "RULES_UNAVAILABLE", "pricing rules unavailable", nil)
		return
	}
	if rs == nil {
		rs = []rules.Rule{}
	}
	common.JSONData(w, http.StatusOK, rs)
}

// Routes mounts the cart and pricing endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/pricing/evaluate", h.Evaluate)
	r.Get("/rules", h.RulesSnapshot)
	r.Route("/carts", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Put("/context", h.SetContext)
			r.Post("/recalculate", h.Recalculate)
			r.Post("/lines", h.AddLine)
			r.Route("/lines/{rowID}", func(r chi.Router) {
				r.Patch("/", h.UpdateLine)
				r.Delete("/", h.RemoveLine)
			})
		})
	})
}
