package cart

// Badge is human-readable metadata describing which rules touched a line.
// It is display data only and never feeds back into pricing decisions.
type Badge struct {
	Label   string   `json:"label,omitempty"`
	Tooltip string   `json:"tooltip,omitempty"`
	Names   []string `json:"names,omitempty"`
}

// Line is one cart row. Derived free lines carry AutoFreeSource, the key
// tying them back to the rule and parent line that produced them.
type Line struct {
	RowID string `json:"row_id"`

	ItemCode  string `json:"item_code"`
	ItemName  string `json:"item_name,omitempty"`
	ItemGroup string `json:"item_group,omitempty"`
	Brand     string `json:"brand,omitempty"`

	UOM              string  `json:"uom,omitempty"`
	StockUOM         string  `json:"stock_uom,omitempty"`
	ConversionFactor float64 `json:"conversion_factor,omitempty"`

	Qty      float64 `json:"qty"`
	StockQty float64 `json:"stock_qty,omitempty"`

	BaseRate          float64 `json:"base_rate"`
	Rate              float64 `json:"rate"`
	BasePriceListRate float64 `json:"base_price_list_rate"`
	PriceListRate     float64 `json:"price_list_rate"`

	BaseDiscountAmount float64 `json:"base_discount_amount"`
	DiscountAmount     float64 `json:"discount_amount"`
	DiscountPercentage float64 `json:"discount_percentage"`

	BaseAmount float64 `json:"base_amount"`
	Amount     float64 `json:"amount"`

	LockedPrice   bool `json:"locked_price,omitempty"`
	OfferApplied  bool `json:"offer_applied,omitempty"`
	ManualRateSet bool `json:"manual_rate_set,omitempty"`

	IsFree         bool   `json:"is_free,omitempty"`
	AutoFreeSource string `json:"auto_free_source,omitempty"`
	SourceRule     string `json:"source_rule,omitempty"`
	ParentRowID    string `json:"parent_row_id,omitempty"`

	Badge Badge `json:"pricing_rule_badge,omitempty"`
}

// Protected reports whether the engine may rewrite the line's rate. Badge
// metadata stays refreshable either way.
func (l *Line) Protected() bool {
	return l.LockedPrice || l.OfferApplied || l.ManualRateSet
}

// PricingQty resolves the quantity used for rule matching: explicit stock
// quantity first, then qty scaled by a non-trivial conversion factor, then
// the raw qty.
func (l *Line) PricingQty() float64 {
	if l.StockQty > 0 {
		return l.StockQty
	}
	if l.ConversionFactor != 0 && l.ConversionFactor != 1 {
		return l.Qty * l.ConversionFactor
	}
	return l.Qty
}
