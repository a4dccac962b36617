package rules

import (
	"strings"
	"time"

	"github.com/noah-isme/pos-pricing/internal/common"
)

// Raw mirrors one row of the rule snapshot wire format. Numeric fields are
// typed any because offline snapshots sourced from heterogeneous backends
// serialise them inconsistently (string, int, float).
type Raw struct {
	Name                      string `json:"name"`
	Priority                  any    `json:"priority"`
	StopFurtherRules          any    `json:"stop_further_rules"`
	ApplyMultiplePricingRules any    `json:"apply_multiple_pricing_rules"`
	ApplyOn                   string `json:"apply_on"`
	ItemCode                  string `json:"item_code"`
	ItemGroup                 string `json:"item_group"`
	Brand                     string `json:"brand"`
	MinQty                    any    `json:"min_qty"`
	ValidFrom                 string `json:"valid_from"`
	ValidUpto                 string `json:"valid_upto"`
	PriceOrDiscount           string `json:"price_or_discount"`
	DiscountType              string `json:"discount_type"`
	RateOrDiscount            any    `json:"rate_or_discount"`
	Slabs                     []Slab `json:"slabs"`
	MarginType                string `json:"margin_type"`
	MarginRateOrAmount        any    `json:"margin_rate_or_amount"`
	Currency                  string `json:"currency"`
	PriceList                 string `json:"price_list"`
	Customer                  string `json:"customer"`
	CustomerGroup             string `json:"customer_group"`
	Territory                 string `json:"territory"`
	IsFreeItemRule            any    `json:"is_free_item_rule"`
	SameItem                  any    `json:"same_item"`
	FreeItem                  string `json:"free_item"`
	FreeQty                   any    `json:"free_qty"`
	FreeQtyPerUnit            any    `json:"free_qty_per_unit"`
	ApplyPerThreshold         any    `json:"apply_per_threshold"`
	MaxFreeQty                any    `json:"max_free_qty"`
	RecurseFor                any    `json:"recurse_for"`
	RoundFreeQty              any    `json:"round_free_qty"`
	FreeItemRate              any    `json:"free_item_rate"`
	ForPriceListRate          any    `json:"for_price_list_rate"`
	UOM                       string `json:"uom"`
}

// Normalize converts raw snapshot rows into evaluation-ready rules,
// deciding each rule's mutation variant exactly once. Rows without a name
// are dropped.
func Normalize(raws []Raw) []Rule {
	out := make([]Rule, 0, len(raws))
	for _, raw := range raws {
		if strings.TrimSpace(raw.Name) == "" {
			continue
		}
		out = append(out, normalizeOne(raw))
	}
	return out
}

func normalizeOne(raw Raw) Rule {
	r := Rule{
		Name:              raw.Name,
		Priority:          common.Cint(raw.Priority),
		ItemCode:          strings.TrimSpace(raw.ItemCode),
		ItemGroup:         strings.TrimSpace(raw.ItemGroup),
		Brand:             strings.TrimSpace(raw.Brand),
		ValidFrom:         parseDate(raw.ValidFrom),
		ValidUpto:         parseDate(raw.ValidUpto),
		Customer:          strings.TrimSpace(raw.Customer),
		CustomerGroup:     strings.TrimSpace(raw.CustomerGroup),
		Territory:         strings.TrimSpace(raw.Territory),
		PriceList:         strings.TrimSpace(raw.PriceList),
		Currency:          strings.TrimSpace(raw.Currency),
		MinQty:            common.NonNeg(common.Flt(raw.MinQty)),
		Slabs:             raw.Slabs,
		StopFurtherRules:  common.Cint(raw.StopFurtherRules) != 0,
		ApplyMultiple:     common.Cint(raw.ApplyMultiplePricingRules) != 0,
		FreeItem:          strings.TrimSpace(raw.FreeItem),
		FreeQty:           common.NonNeg(common.Flt(raw.FreeQty)),
		FreeQtyPerUnit:    common.NonNeg(common.Flt(raw.FreeQtyPerUnit)),
		ApplyPerThreshold: common.Cint(raw.ApplyPerThreshold) != 0,
		RecurseFor:        common.NonNeg(common.Flt(raw.RecurseFor)),
		MaxFreeQty:        common.NonNeg(common.Flt(raw.MaxFreeQty)),
		RoundFreeQty:      common.Cint(raw.RoundFreeQty) != 0,
		SameItem:          common.Cint(raw.SameItem) != 0,

		FreeItemRate:          common.NonNeg(common.Flt(raw.FreeItemRate)),
		FreeItemPriceListRate: common.NonNeg(common.Flt(raw.ForPriceListRate)),
		FreeItemUOM:           strings.TrimSpace(raw.UOM),
	}

	mode := strings.TrimSpace(raw.PriceOrDiscount)
	discountType := strings.TrimSpace(raw.DiscountType)

	switch {
	case common.Cint(raw.IsFreeItemRule) != 0 || strings.EqualFold(mode, "Product"):
		r.Kind = KindFreeItem
		// Non-recursive product rules grant a single unit when the
		// snapshot omits free_qty.
		if r.FreeQty == 0 && r.FreeQtyPerUnit == 0 && !r.ApplyPerThreshold {
			r.FreeQty = 1
		}
	case strings.EqualFold(discountType, "Margin"):
		r.Kind = KindMargin
		r.Value = common.Flt(raw.MarginRateOrAmount)
		if r.Value == 0 {
			r.Value = common.Flt(raw.RateOrDiscount)
		}
		r.MarginIsPercent = !strings.EqualFold(strings.TrimSpace(raw.MarginType), "Amount")
	case strings.EqualFold(mode, "Price"):
		r.Kind = KindPriceOverride
		r.Value = common.Flt(raw.RateOrDiscount)
		r.OverrideIsDelta = strings.EqualFold(discountType, "Amount")
	case strings.EqualFold(discountType, "Amount"):
		r.Kind = KindDiscountAmount
		r.Value = common.Flt(raw.RateOrDiscount)
	default:
		r.Kind = KindDiscountPercentage
		r.Value = common.Flt(raw.RateOrDiscount)
	}

	return r
}

func parseDate(value string) *time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return &t
		}
	}
	return nil
}
