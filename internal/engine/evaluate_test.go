package engine

import (
	"math"
	"testing"

	"github.com/noah-isme/pos-pricing/internal/rules"
)

func evalInput(idx *rules.Index, qty, base float64) Input {
	return Input{
		Item:          rules.ItemRef{Code: "SKU-1", Group: "Beverages", Brand: "Acme"},
		Qty:           qty,
		BaseRate:      base,
		PriceListRate: base,
		Ctx:           rules.Context{PriceList: "Standard Selling", Currency: "IDR"},
		Index:         idx,
	}
}

func TestEvaluatePercentageDiscount(t *testing.T) {
	idx := rules.NewIndex([]rules.Rule{{
		Name:     "ten-off",
		ItemCode: "SKU-1",
		Kind:     rules.KindDiscountPercentage,
		Value:    10,
	}})
	res := Evaluate(evalInput(idx, 1, 100))
	if res.Pricing.Rate != 90 {
		t.Fatalf("rate = %v, want 90", res.Pricing.Rate)
	}
	if res.Pricing.DiscountPerUnit != 10 {
		t.Fatalf("discount per unit = %v, want 10", res.Pricing.DiscountPerUnit)
	}
	if len(res.Pricing.Applied) != 1 {
		t.Fatalf("applied trail length = %d, want 1", len(res.Pricing.Applied))
	}
	got := res.Pricing.Applied[0]
	if got.Name != "ten-off" || got.Type != "discount_percentage" || got.Change != -10 {
		t.Fatalf("unexpected trail entry %+v", got)
	}
}

func TestEvaluateSlabValue(t *testing.T) {
	idx := rules.NewIndex([]rules.Rule{{
		Name:     "tiered",
		ItemCode: "SKU-1",
		Kind:     rules.KindDiscountPercentage,
		Value:    2,
		Slabs: []rules.Slab{
			{MinQty: 5, Value: 5},
			{MinQty: 10, Value: 10},
			{MinQty: 20, Value: 15},
		},
	}})
	res := Evaluate(evalInput(idx, 12, 100))
	if res.Pricing.Rate != 90 {
		t.Fatalf("qty 12 must pick the 10-unit slab: rate = %v, want 90", res.Pricing.Rate)
	}
	if res.Pricing.Applied[0].Value != 10 {
		t.Fatalf("trail value = %v, want slab value 10", res.Pricing.Applied[0].Value)
	}
}

func TestEvaluateOverride(t *testing.T) {
	fixed := rules.NewIndex([]rules.Rule{{
		Name:     "fix",
		ItemCode: "SKU-1",
		Kind:     rules.KindPriceOverride,
		Value:    75,
	}})
	if got := Evaluate(evalInput(fixed, 1, 100)).Pricing.Rate; got != 75 {
		t.Fatalf("fixed override rate = %v, want 75", got)
	}

	delta := rules.NewIndex([]rules.Rule{{
		Name:            "off",
		ItemCode:        "SKU-1",
		Kind:            rules.KindPriceOverride,
		Value:           30,
		OverrideIsDelta: true,
	}})
	if got := Evaluate(evalInput(delta, 1, 100)).Pricing.Rate; got != 70 {
		t.Fatalf("delta override rate = %v, want 70", got)
	}
}

func TestEvaluateMarginAnchorsOnBase(t *testing.T) {
	idx := rules.NewIndex([]rules.Rule{
		{Name: "a-discount", ItemCode: "SKU-1", Priority: 5, Kind: rules.KindDiscountPercentage, Value: 50, ApplyMultiple: true},
		{Name: "b-margin", ItemCode: "SKU-1", Priority: 1, Kind: rules.KindMargin, Value: 20, MarginIsPercent: true},
	})
	res := Evaluate(evalInput(idx, 1, 100))
	// The margin ignores the 50 the chain already took off.
	if res.Pricing.Rate != 120 {
		t.Fatalf("margin must anchor on the base rate: got %v, want 120", res.Pricing.Rate)
	}
}

func TestEvaluateChainStops(t *testing.T) {
	stop := rules.NewIndex([]rules.Rule{
		{Name: "a-stop", ItemCode: "SKU-1", Priority: 5, Kind: rules.KindDiscountAmount, Value: 10, ApplyMultiple: true, StopFurtherRules: true},
		{Name: "b-next", ItemCode: "SKU-1", Priority: 1, Kind: rules.KindDiscountAmount, Value: 10, ApplyMultiple: true},
	})
	if got := Evaluate(evalInput(stop, 1, 100)).Pricing.Rate; got != 90 {
		t.Fatalf("stop_further_rules must end the chain: rate = %v, want 90", got)
	}

	single := rules.NewIndex([]rules.Rule{
		{Name: "a-single", ItemCode: "SKU-1", Priority: 5, Kind: rules.KindDiscountAmount, Value: 10},
		{Name: "b-next", ItemCode: "SKU-1", Priority: 1, Kind: rules.KindDiscountAmount, Value: 10, ApplyMultiple: true},
	})
	if got := Evaluate(evalInput(single, 1, 100)).Pricing.Rate; got != 90 {
		t.Fatalf("a rule without apply_multiple must end the chain: rate = %v, want 90", got)
	}

	chain := rules.NewIndex([]rules.Rule{
		{Name: "a-first", ItemCode: "SKU-1", Priority: 5, Kind: rules.KindDiscountAmount, Value: 10, ApplyMultiple: true},
		{Name: "b-second", ItemCode: "SKU-1", Priority: 1, Kind: rules.KindDiscountPercentage, Value: 10, ApplyMultiple: true},
	})
	if got := Evaluate(evalInput(chain, 1, 100)).Pricing.Rate; got != 81 {
		t.Fatalf("chained rules compound on the running rate: got %v, want 81", got)
	}
}

func TestEvaluateMinQtyGateSkipsNotBreaks(t *testing.T) {
	idx := rules.NewIndex([]rules.Rule{
		{Name: "a-bulk", ItemCode: "SKU-1", Priority: 5, Kind: rules.KindDiscountPercentage, Value: 50, MinQty: 100},
		{Name: "b-any", ItemCode: "SKU-1", Priority: 1, Kind: rules.KindDiscountPercentage, Value: 10},
	})
	res := Evaluate(evalInput(idx, 2, 100))
	if res.Pricing.Rate != 90 {
		t.Fatalf("a gated rule must not end the chain: rate = %v, want 90", res.Pricing.Rate)
	}
	if len(res.Pricing.Applied) != 1 || res.Pricing.Applied[0].Name != "b-any" {
		t.Fatalf("unexpected trail %+v", res.Pricing.Applied)
	}
}

func TestEvaluateRateNeverNegative(t *testing.T) {
	idx := rules.NewIndex([]rules.Rule{{
		Name:     "deep",
		ItemCode: "SKU-1",
		Kind:     rules.KindDiscountAmount,
		Value:    500,
	}})
	res := Evaluate(evalInput(idx, 1, 100))
	if res.Pricing.Rate != 0 {
		t.Fatalf("rate = %v, want clamp to 0", res.Pricing.Rate)
	}
	if res.Pricing.DiscountPerUnit != 100 {
		t.Fatalf("discount per unit = %v, want cap at base 100", res.Pricing.DiscountPerUnit)
	}
}

func TestEvaluateNoRules(t *testing.T) {
	res := Evaluate(evalInput(nil, 1, 100))
	if res.Pricing.Rate != 100 || len(res.Pricing.Applied) != 0 || len(res.Freebies) != 0 {
		t.Fatalf("nil index must return the base rate untouched: %+v", res)
	}

	empty := rules.NewIndex(nil)
	res = Evaluate(evalInput(empty, 1, 100))
	if res.Pricing.Rate != 100 {
		t.Fatalf("empty index must return the base rate untouched: %+v", res)
	}
}

func TestEvaluateFreebiesPerThreshold(t *testing.T) {
	idx := rules.NewIndex([]rules.Rule{{
		Name:              "buy3get1",
		ItemCode:          "SKU-1",
		Kind:              rules.KindFreeItem,
		MinQty:            3,
		FreeQty:           1,
		ApplyPerThreshold: true,
		SameItem:          true,
	}})
	in := evalInput(idx, 7, 100)
	in.ParentRowID = "row-9"
	res := Evaluate(in)
	if len(res.Freebies) != 1 {
		t.Fatalf("freebies = %d, want 1", len(res.Freebies))
	}
	f := res.Freebies[0]
	if f.Qty != 2 {
		t.Fatalf("qty 7 over threshold 3 grants floor(7/3) = 2, got %v", f.Qty)
	}
	if f.ItemCode != "SKU-1" || !f.SameItem {
		t.Fatalf("same-item grant must inherit the trigger item: %+v", f)
	}
	if f.Key() != "buy3get1::SKU-1::row-9" {
		t.Fatalf("key = %q", f.Key())
	}
	if res.Pricing.Rate != 100 {
		t.Fatalf("a free-item rule must not touch the rate: got %v", res.Pricing.Rate)
	}
}

func TestEvaluateFreebieBelowThreshold(t *testing.T) {
	idx := rules.NewIndex([]rules.Rule{{
		Name:     "buy5get1",
		ItemCode: "SKU-1",
		Kind:     rules.KindFreeItem,
		MinQty:   5,
		FreeQty:  1,
		SameItem: true,
	}})
	if got := Evaluate(evalInput(idx, 4, 100)).Freebies; len(got) != 0 {
		t.Fatalf("below-threshold line must grant nothing, got %+v", got)
	}
}

func TestEvaluateFreebieZeroThreshold(t *testing.T) {
	// Gift-with-purchase: no minimum, one grant regardless of quantity.
	idx := rules.NewIndex([]rules.Rule{{
		Name:     "gift",
		ItemCode: "SKU-1",
		Kind:     rules.KindFreeItem,
		FreeQty:  1,
		SameItem: true,
	}})
	res := Evaluate(evalInput(idx, 1, 100))
	if len(res.Freebies) != 1 || res.Freebies[0].Qty != 1 {
		t.Fatalf("zero-threshold rule must grant once, got %+v", res.Freebies)
	}

	// per_threshold with threshold 0 cannot multiply; the grant stays flat.
	perThreshold := rules.NewIndex([]rules.Rule{{
		Name:              "gift-flat",
		ItemCode:          "SKU-1",
		Kind:              rules.KindFreeItem,
		FreeQty:           1,
		ApplyPerThreshold: true,
		SameItem:          true,
	}})
	res = Evaluate(evalInput(perThreshold, 8, 100))
	if len(res.Freebies) != 1 || res.Freebies[0].Qty != 1 {
		t.Fatalf("zero threshold with per_threshold grants flat 1, got %+v", res.Freebies)
	}
}

func TestEvaluateFreebieOtherItemPricing(t *testing.T) {
	idx := rules.NewIndex([]rules.Rule{{
		Name:                  "bundle",
		ItemCode:              "SKU-1",
		Kind:                  rules.KindFreeItem,
		MinQty:                2,
		FreeQty:               1,
		FreeItem:              "SKU-GIFT",
		FreeItemRate:          0,
		FreeItemPriceListRate: 25,
		FreeItemUOM:           "Unit",
	}})
	res := Evaluate(evalInput(idx, 2, 100))
	if len(res.Freebies) != 1 {
		t.Fatalf("freebies = %d, want 1", len(res.Freebies))
	}
	f := res.Freebies[0]
	if f.ItemCode != "SKU-GIFT" || f.UOM != "Unit" {
		t.Fatalf("unexpected freebie %+v", f)
	}
	if f.Rate != 0 || f.PriceListRate != 25 || f.DiscountAmount != 25 {
		t.Fatalf("freebie pricing %+v, want rate 0, plr 25, discount 25", f)
	}
}

func TestFreeQtyCapsAndRounding(t *testing.T) {
	perUnit := rules.Rule{FreeQtyPerUnit: 0.4, MinQty: 1}
	if got := freeQty(perUnit, 10, 1); got != 4 {
		t.Fatalf("per-unit qty = %v, want 4", got)
	}

	capped := rules.Rule{FreeQtyPerUnit: 0.4, MinQty: 1, MaxFreeQty: 3}
	if got := freeQty(capped, 10, 1); got != 3 {
		t.Fatalf("capped qty = %v, want 3", got)
	}

	rounded := rules.Rule{FreeQtyPerUnit: 0.4, MinQty: 1, RoundFreeQty: true}
	if got := freeQty(rounded, 9, 1); got != 3 {
		t.Fatalf("rounded qty = %v, want floor(3.6) = 3", got)
	}
}

func TestEvaluateRecurseForOverridesMinQty(t *testing.T) {
	idx := rules.NewIndex([]rules.Rule{{
		Name:              "recurse",
		ItemCode:          "SKU-1",
		Kind:              rules.KindFreeItem,
		MinQty:            10,
		RecurseFor:        4,
		FreeQty:           1,
		ApplyPerThreshold: true,
		SameItem:          true,
	}})
	res := Evaluate(evalInput(idx, 9, 100))
	if len(res.Freebies) != 1 || res.Freebies[0].Qty != 2 {
		t.Fatalf("recurse_for 4 at qty 9 grants 2, got %+v", res.Freebies)
	}
}

func TestEffectiveQty(t *testing.T) {
	cases := []struct {
		qtys []float64
		want float64
	}{
		{[]float64{2, 24, 2}, 24},
		{[]float64{5}, 5},
		{[]float64{-3, 2}, 2},
		{[]float64{math.NaN(), math.Inf(1), 7}, 7},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := EffectiveQty(tc.qtys...); got != tc.want {
			t.Fatalf("EffectiveQty(%v) = %v, want %v", tc.qtys, got, tc.want)
		}
	}
}
