package reconcile

import "github.com/noah-isme/pos-pricing/internal/rules"

// Request is the normalized reconciliation payload: one per pricing pass,
// covering every paid and free line, rates in base currency.
type Request struct {
	Context   rules.Context `json:"context"`
	Lines     []PaidLine    `json:"lines"`
	FreeLines []FreeLine    `json:"free_lines"`
}

// PaidLine is one non-free cart line in the request.
type PaidLine struct {
	RowID          string   `json:"row_id"`
	ItemCode       string   `json:"item_code"`
	ItemGroup      string   `json:"item_group,omitempty"`
	Brand          string   `json:"brand,omitempty"`
	UOM            string   `json:"uom,omitempty"`
	Qty            float64  `json:"qty"`
	StockQty       float64  `json:"stock_qty"`
	Rate           float64  `json:"rate"`
	PriceListRate  float64  `json:"price_list_rate"`
	DiscountAmount float64  `json:"discount_amount"`
	PricingRules   []string `json:"pricing_rules,omitempty"`
}

// FreeLine is one currently-derived free line in the request.
type FreeLine struct {
	ItemCode   string  `json:"item_code"`
	Qty        float64 `json:"qty"`
	SourceRule string  `json:"source_rule,omitempty"`
	Rate       float64 `json:"rate"`
	UOM        string  `json:"uom,omitempty"`
}

// Response is the authoritative recomputation result.
type Response struct {
	Updates        []LineUpdate    `json:"updates"`
	FreeLines      []ServerFreebie `json:"free_lines"`
	InvoiceUpdates *InvoiceUpdates `json:"invoice_updates,omitempty"`
}

// LineUpdate is the canonical pricing for one paid line.
type LineUpdate struct {
	RowID              string   `json:"row_id"`
	ItemCode           string   `json:"item_code,omitempty"`
	Rate               float64  `json:"rate"`
	PriceListRate      float64  `json:"price_list_rate"`
	DiscountAmount     float64  `json:"discount_amount"`
	DiscountPercentage float64  `json:"discount_percentage"`
	PricingRules       []string `json:"pricing_rules,omitempty"`
}

// ServerFreebie is one free-item entitlement as the server computed it.
// Flag fields are integers because the upstream serialises booleans as
// 0/1.
type ServerFreebie struct {
	ItemCode          string  `json:"item_code"`
	Qty               float64 `json:"qty"`
	PricingRules      string  `json:"pricing_rules"`
	Rate              float64 `json:"rate"`
	PriceListRate     float64 `json:"price_list_rate"`
	DiscountAmount    float64 `json:"discount_amount"`
	BaseRate          float64 `json:"base_rate"`
	BasePriceListRate float64 `json:"base_price_list_rate"`
	SameItem          int     `json:"same_item"`
	UOM               string  `json:"uom,omitempty"`
	IsFree            int     `json:"is_free"`
}

// InvoiceUpdates mirrors the transaction-level section of the response.
type InvoiceUpdates struct {
	DiscountAmount               float64  `json:"discount_amount"`
	AdditionalDiscountPercentage float64  `json:"additional_discount_percentage"`
	PricingRules                 []string `json:"pricing_rules,omitempty"`
}
