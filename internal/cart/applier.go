package cart

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-pricing/internal/common"
	"github.com/noah-isme/pos-pricing/internal/engine"
	"github.com/noah-isme/pos-pricing/internal/rules"
)

// Applier runs the rule evaluator over paid cart lines and folds the
// results back into them under the mutation guards.
type Applier struct {
	Index *rules.Index
	Ctx   rules.Context
	Log   zerolog.Logger
}

// ApplyAll evaluates every non-free line and returns the merged freebie
// map for the whole pass, keyed rule::item::parentRow with quantities
// accumulated when several lines trigger the same rule.
func (a *Applier) ApplyAll(lines []*Line) map[string]engine.Freebie {
	merged := make(map[string]engine.Freebie)
	for _, line := range lines {
		if line == nil || line.IsFree {
			continue
		}
		for _, fb := range a.applyLine(line) {
			key := fb.Key()
			if existing, ok := merged[key]; ok {
				existing.Qty += fb.Qty
				existing.StockQty += fb.StockQty
				merged[key] = existing
				continue
			}
			merged[key] = fb
		}
	}
	return merged
}

func (a *Applier) applyLine(line *Line) []engine.Freebie {
	res := engine.Evaluate(engine.Input{
		Item:          rules.ItemRef{Code: line.ItemCode, Group: line.ItemGroup, Brand: line.Brand},
		Qty:           common.NonNeg(line.Qty),
		StockQty:      common.NonNeg(line.PricingQty()),
		BaseRate:      a.baseline(line),
		PriceListRate: line.BasePriceListRate,
		ParentRowID:   line.RowID,
		Ctx:           a.Ctx,
		Index:         a.Index,
	})

	// Badges always reflect what matched, even when guards block the
	// rate change itself.
	line.Badge = badgeFromTrail(res.Pricing.Applied)

	if !line.Protected() {
		a.applyRate(line, res.Pricing.Rate)
	}
	return res.Freebies
}

// applyRate writes the proposed rate into the line. The engine never
// raises a rate above its pre-discount baseline.
func (a *Applier) applyRate(line *Line, proposed float64) {
	baseline := a.baseline(line)
	rate := proposed
	if rate > baseline {
		rate = baseline
	}
	rate = common.NonNeg(rate)
	discount := common.Clamp(baseline-rate, 0, baseline)

	line.BaseRate = rate
	line.BasePriceListRate = baseline
	line.BaseDiscountAmount = discount

	cr := a.conversionRate()
	line.Rate = rate / cr
	line.PriceListRate = baseline / cr
	line.DiscountAmount = discount / cr
	if baseline > 0 {
		line.DiscountPercentage = discount / baseline * 100
	} else {
		line.DiscountPercentage = 0
	}

	line.BaseAmount = line.BaseRate * common.NonNeg(line.Qty)
	line.Amount = line.Rate * common.NonNeg(line.Qty)
}

// baseline is the pre-discount anchor rate: the base price list rate when
// present, else the line's base rate.
func (a *Applier) baseline(line *Line) float64 {
	if line.BasePriceListRate > 0 {
		return line.BasePriceListRate
	}
	return common.NonNeg(line.BaseRate)
}

func (a *Applier) conversionRate() float64 {
	if a.Ctx.ConversionRate > 0 {
		return a.Ctx.ConversionRate
	}
	return 1
}

func badgeFromTrail(applied []engine.Applied) Badge {
	if len(applied) == 0 {
		return Badge{}
	}
	names := make([]string, 0, len(applied))
	for _, entry := range applied {
		names = append(names, entry.Name)
	}
	label := names[0]
	if len(names) > 1 {
		label = names[0] + " +"
	}
	return Badge{
		Label:   label,
		Tooltip: strings.Join(names, ", "),
		Names:   names,
	}
}
