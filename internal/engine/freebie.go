package engine

// Freebie describes one free-item entitlement produced by a pricing pass.
// Descriptors are transient: they live only between evaluation and the
// free-line synchronizer and are never persisted.
type Freebie struct {
	Rule        string  `json:"rule"`
	ItemCode    string  `json:"item_code"`
	Qty         float64 `json:"qty"`
	StockQty    float64 `json:"stock_qty"`
	SameItem    bool    `json:"same_item"`
	ParentRowID string  `json:"parent_row_id,omitempty"`

	Rate              float64 `json:"rate"`
	BaseRate          float64 `json:"base_rate"`
	PriceListRate     float64 `json:"price_list_rate"`
	BasePriceListRate float64 `json:"base_price_list_rate"`
	DiscountAmount    float64 `json:"discount_amount"`
	UOM               string  `json:"uom,omitempty"`
}

// Key is the stable identity of a free line: rule::item_code, suffixed
// with ::parentRowID when the grant is tied to one paid line.
func (f Freebie) Key() string {
	key := f.Rule + "::" + f.ItemCode
	if f.ParentRowID != "" {
		key += "::" + f.ParentRowID
	}
	return key
}
