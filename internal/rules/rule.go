package rules

import (
	"math"
	"time"
)

// Kind identifies how a rule mutates a rate. It is decided once when the
// rule snapshot is normalised so evaluation never re-inspects the raw
// discount/price mode strings.
type Kind int

const (
	// KindDiscountPercentage reduces the running rate by a percentage.
	KindDiscountPercentage Kind = iota
	// KindDiscountAmount subtracts a flat amount from the running rate.
	KindDiscountAmount
	// KindPriceOverride replaces the rate with a fixed value, or with
	// base minus value when the override is expressed as a delta.
	KindPriceOverride
	// KindMargin adds a margin amount or percentage on top of the
	// original base rate.
	KindMargin
	// KindFreeItem grants free units instead of touching the rate.
	KindFreeItem
)

func (k Kind) String() string {
	switch k {
	case KindDiscountPercentage:
		return "discount_percentage"
	case KindDiscountAmount:
		return "discount_amount"
	case KindPriceOverride:
		return "price_override"
	case KindMargin:
		return "margin"
	case KindFreeItem:
		return "free_item"
	default:
		return "unknown"
	}
}

// Slab is a quantity-tiered override of the rule's value.
type Slab struct {
	MinQty float64 `json:"min_qty"`
	Value  float64 `json:"rate_or_discount"`
}

// Rule is one normalised pricing rule, immutable for the duration of a
// pricing pass. At most one of ItemCode/ItemGroup/Brand is set; a rule with
// none of them applies to every item.
type Rule struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`

	ItemCode  string `json:"item_code,omitempty"`
	ItemGroup string `json:"item_group,omitempty"`
	Brand     string `json:"brand,omitempty"`

	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidUpto *time.Time `json:"valid_upto,omitempty"`

	Customer      string `json:"customer,omitempty"`
	CustomerGroup string `json:"customer_group,omitempty"`
	Territory     string `json:"territory,omitempty"`
	PriceList     string `json:"price_list,omitempty"`
	Currency      string `json:"currency,omitempty"`

	MinQty float64 `json:"min_qty"`
	Slabs  []Slab  `json:"slabs,omitempty"`

	Kind  Kind    `json:"kind"`
	Value float64 `json:"value"`
	// OverrideIsDelta marks a price override expressed as "base minus
	// value" rather than a fixed rate.
	OverrideIsDelta bool `json:"override_is_delta,omitempty"`
	// MarginIsPercent selects percentage semantics for KindMargin.
	MarginIsPercent bool `json:"margin_is_percent,omitempty"`

	StopFurtherRules bool `json:"stop_further_rules,omitempty"`
	ApplyMultiple    bool `json:"apply_multiple,omitempty"`

	FreeItem          string  `json:"free_item,omitempty"`
	FreeQty           float64 `json:"free_qty,omitempty"`
	FreeQtyPerUnit    float64 `json:"free_qty_per_unit,omitempty"`
	ApplyPerThreshold bool    `json:"apply_per_threshold,omitempty"`
	RecurseFor        float64 `json:"recurse_for,omitempty"`
	MaxFreeQty        float64 `json:"max_free_qty,omitempty"`
	RoundFreeQty      bool    `json:"round_free_qty,omitempty"`
	SameItem          bool    `json:"same_item,omitempty"`

	FreeItemRate          float64 `json:"free_item_rate,omitempty"`
	FreeItemPriceListRate float64 `json:"free_item_price_list_rate,omitempty"`
	FreeItemUOM           string  `json:"free_item_uom,omitempty"`
}

// Specificity returns the precedence tier derived from how narrowly the
// rule targets a product: item 3, item group 2, brand 1, general 0.
func (r Rule) Specificity() int {
	switch {
	case r.ItemCode != "":
		return 3
	case r.ItemGroup != "":
		return 2
	case r.Brand != "":
		return 1
	default:
		return 0
	}
}

// BenefitScore is the tie-break magnitude comparing the size of the
// discount/margin against the size of the free-quantity grant.
func (r Rule) BenefitScore() float64 {
	return math.Max(math.Abs(r.Value), math.Abs(r.FreeQty)+math.Abs(r.FreeQtyPerUnit))
}

// Threshold returns the quantity a line must reach before the rule's
// free-item grant triggers.
func (r Rule) Threshold() float64 {
	if r.RecurseFor > 0 {
		return r.RecurseFor
	}
	return r.MinQty
}

// Context carries the commercial context a cart is priced under.
type Context struct {
	Company        string    `json:"company"`
	PriceList      string    `json:"price_list"`
	Currency       string    `json:"currency"`
	Customer       string    `json:"customer,omitempty"`
	CustomerGroup  string    `json:"customer_group,omitempty"`
	Territory      string    `json:"territory,omitempty"`
	Date           time.Time `json:"date"`
	ConversionRate float64   `json:"conversion_rate,omitempty"`
}

// ItemRef identifies the product a cart line refers to.
type ItemRef struct {
	Code  string
	Group string
	Brand string
}

// Matches reports whether the rule's context filters admit the provided
// context. A set filter requires the cart value to be present and equal.
func (r Rule) Matches(ctx Context) bool {
	if r.ValidFrom != nil && ctx.Date.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUpto != nil && ctx.Date.After(*r.ValidUpto) {
		return false
	}
	if r.Customer != "" && r.Customer != ctx.Customer {
		return false
	}
	if r.CustomerGroup != "" && r.CustomerGroup != ctx.CustomerGroup {
		return false
	}
	if r.Territory != "" && r.Territory != ctx.Territory {
		return false
	}
	if r.PriceList != "" && r.PriceList != ctx.PriceList {
		return false
	}
	if r.Currency != "" && r.Currency != ctx.Currency {
		return false
	}
	return true
}

// SlabValue picks the value of the slab with the largest MinQty not
// exceeding qty. When no slab qualifies the rule-level value is returned.
func (r Rule) SlabValue(qty float64) float64 {
	value := r.Value
	best := math.Inf(-1)
	for _, slab := range r.Slabs {
		if slab.MinQty <= qty && slab.MinQty > best {
			best = slab.MinQty
			value = slab.Value
		}
	}
	return value
}

// Less implements the precedence comparator: descending specificity, then
// descending priority, then descending benefit score, then name ascending
// as the deterministic final tie-break.
func Less(a, b Rule) bool {
	if sa, sb := a.Specificity(), b.Specificity(); sa != sb {
		return sa > sb
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if ba, bb := a.BenefitScore(), b.BenefitScore(); ba != bb {
		return ba > bb
	}
	return a.Name < b.Name
}
