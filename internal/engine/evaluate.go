// Package engine implements the pure pricing-rule evaluator. It has no
// side effects and performs no I/O: rate math over an in-memory rule index
// and nothing else.
package engine

import (
	"math"

	"github.com/noah-isme/pos-pricing/internal/common"
	"github.com/noah-isme/pos-pricing/internal/rules"
)

// Input carries everything one evaluation needs.
type Input struct {
	Item          rules.ItemRef
	Qty           float64
	DocQty        float64
	StockQty      float64
	BaseRate      float64
	PriceListRate float64
	ParentRowID   string
	Ctx           rules.Context
	Index         *rules.Index
}

// Applied is one audit-trail entry for a rule that mutated the rate.
type Applied struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	// Change is the signed rate delta the rule produced.
	Change float64 `json:"change"`
}

// Pricing is the rate outcome of one evaluation.
type Pricing struct {
	Rate            float64   `json:"rate"`
	DiscountPerUnit float64   `json:"discount_per_unit"`
	Applied         []Applied `json:"applied"`
}

// Result bundles the rate outcome with the free-item entitlements.
type Result struct {
	Pricing  Pricing   `json:"pricing"`
	Freebies []Freebie `json:"freebies"`
}

// Evaluate computes the effective rate, the applied-rule trail and the
// free-item descriptors for one line. The base rate is the anchor for
// margin rules regardless of where the discount chain has moved the
// running rate.
func Evaluate(in Input) Result {
	base := common.NonNeg(in.BaseRate)
	effQty := EffectiveQty(in.Qty, in.DocQty, in.StockQty)

	res := Result{Pricing: Pricing{Rate: base}}
	if in.Index == nil {
		return res
	}
	cands := in.Index.Candidates(in.Item, in.Ctx)
	if len(cands) == 0 {
		return res
	}

	res.Pricing = applyRateRules(cands, base, effQty)
	res.Freebies = collectFreebies(cands, in, effQty)
	return res
}

// EffectiveQty resolves the quantity rules trigger on: the maximum of the
// candidate quantity representations, each coerced to a non-negative
// finite number. Taking the max avoids under-triggering when unit
// conversions disagree.
func EffectiveQty(qtys ...float64) float64 {
	var eff float64
	for _, q := range qtys {
		if math.IsNaN(q) || math.IsInf(q, 0) {
			continue
		}
		if q > eff {
			eff = q
		}
	}
	return eff
}

func applyRateRules(cands []rules.Rule, base, effQty float64) Pricing {
	p := Pricing{Rate: base}
	for _, r := range cands {
		if r.Kind == rules.KindFreeItem {
			continue
		}
		if effQty < r.MinQty {
			continue
		}
		value := r.SlabValue(effQty)
		next := mutateRate(r, p.Rate, base, value)
		next = common.NonNeg(next)
		p.Applied = append(p.Applied, Applied{
			Name:   r.Name,
			Type:   r.Kind.String(),
			Value:  value,
			Change: next - p.Rate,
		})
		p.Rate = next
		if r.StopFurtherRules {
			break
		}
		if !r.ApplyMultiple {
			break
		}
	}
	p.DiscountPerUnit = common.Clamp(base-p.Rate, 0, base)
	return p
}

func mutateRate(r rules.Rule, current, base, value float64) float64 {
	switch r.Kind {
	case rules.KindPriceOverride:
		if r.OverrideIsDelta {
			return base - value
		}
		return value
	case rules.KindDiscountAmount:
		return current - value
	case rules.KindDiscountPercentage:
		return current * (1 - value/100)
	case rules.KindMargin:
		// Margin anchors on the original base, not the chain's
		// running rate.
		if r.MarginIsPercent {
			return base * (1 + value/100)
		}
		return base + value
	default:
		return current
	}
}

func collectFreebies(cands []rules.Rule, in Input, effQty float64) []Freebie {
	var out []Freebie
	for _, r := range cands {
		if r.Kind != rules.KindFreeItem {
			continue
		}
		// A zero threshold means "gift with purchase": any quantity
		// qualifies.
		threshold := r.Threshold()
		if effQty < threshold {
			continue
		}
		qty := freeQty(r, effQty, threshold)
		if qty <= 0 {
			if r.StopFurtherRules {
				break
			}
			continue
		}
		itemCode := r.FreeItem
		if r.SameItem || itemCode == "" {
			itemCode = in.Item.Code
		}
		rate := r.FreeItemRate
		priceListRate := r.FreeItemPriceListRate
		if priceListRate == 0 {
			priceListRate = rate
		}
		out = append(out, Freebie{
			Rule:              r.Name,
			ItemCode:          itemCode,
			Qty:               qty,
			StockQty:          qty,
			SameItem:          r.SameItem,
			ParentRowID:       in.ParentRowID,
			Rate:              rate,
			BaseRate:          rate,
			PriceListRate:     priceListRate,
			BasePriceListRate: priceListRate,
			DiscountAmount:    common.NonNeg(priceListRate - rate),
			UOM:               r.FreeItemUOM,
		})
		if r.StopFurtherRules {
			break
		}
	}
	return out
}

func freeQty(r rules.Rule, effQty, threshold float64) float64 {
	multiplier := 1.0
	if r.ApplyPerThreshold && threshold > 0 {
		multiplier = math.Floor(effQty / threshold)
	}
	per := r.FreeQty
	if r.FreeQtyPerUnit > 0 {
		per = r.FreeQtyPerUnit * effQty
	}
	qty := multiplier * per
	if r.MaxFreeQty > 0 && qty > r.MaxFreeQty {
		qty = r.MaxFreeQty
	}
	if r.RoundFreeQty {
		qty = math.Floor(qty)
	}
	return qty
}
