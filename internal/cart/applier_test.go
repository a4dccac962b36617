package cart

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-pricing/internal/rules"
)

func discountIndex(value float64) *rules.Index {
	return rules.NewIndex([]rules.Rule{{
		Name:     "promo",
		ItemCode: "SKU-1",
		Kind:     rules.KindDiscountPercentage,
		Value:    value,
	}})
}

func paidLine(rowID string, qty, base float64) *Line {
	return &Line{
		RowID:             rowID,
		ItemCode:          "SKU-1",
		Qty:               qty,
		BaseRate:          base,
		Rate:              base,
		BasePriceListRate: base,
		PriceListRate:     base,
	}
}

func TestApplyAllDiscountsLine(t *testing.T) {
	a := &Applier{Index: discountIndex(10), Log: zerolog.Nop()}
	line := paidLine("r1", 2, 100)
	a.ApplyAll([]*Line{line})

	if line.Rate != 90 || line.BaseRate != 90 {
		t.Fatalf("rate = %v/%v, want 90", line.Rate, line.BaseRate)
	}
	if line.DiscountAmount != 10 || line.DiscountPercentage != 10 {
		t.Fatalf("discount = %v (%v%%), want 10 (10%%)", line.DiscountAmount, line.DiscountPercentage)
	}
	if line.Amount != 180 || line.BaseAmount != 180 {
		t.Fatalf("amount = %v/%v, want 180", line.Amount, line.BaseAmount)
	}
	if len(line.Badge.Names) != 1 || line.Badge.Names[0] != "promo" {
		t.Fatalf("badge = %+v, want rule name recorded", line.Badge)
	}
}

func TestApplyAllProtectedLineKeepsRate(t *testing.T) {
	a := &Applier{Index: discountIndex(10), Log: zerolog.Nop()}
	line := paidLine("r1", 1, 100)
	line.ManualRateSet = true
	a.ApplyAll([]*Line{line})

	if line.Rate != 100 {
		t.Fatalf("pinned rate was rewritten to %v", line.Rate)
	}
	// The badge still reflects what matched.
	if len(line.Badge.Names) != 1 {
		t.Fatalf("badge must refresh on protected lines, got %+v", line.Badge)
	}
}

func TestApplyAllNeverRaisesAboveBaseline(t *testing.T) {
	idx := rules.NewIndex([]rules.Rule{{
		Name:            "markup",
		ItemCode:        "SKU-1",
		Kind:            rules.KindMargin,
		Value:           20,
		MarginIsPercent: true,
	}})
	a := &Applier{Index: idx, Log: zerolog.Nop()}
	line := paidLine("r1", 1, 100)
	a.ApplyAll([]*Line{line})

	if line.Rate != 100 {
		t.Fatalf("rate = %v, must be capped at the 100 baseline", line.Rate)
	}
	if line.DiscountAmount != 0 {
		t.Fatalf("discount = %v, want 0", line.DiscountAmount)
	}
}

func TestApplyAllConversionRate(t *testing.T) {
	a := &Applier{
		Index: discountIndex(10),
		Ctx:   rules.Context{ConversionRate: 2},
		Log:   zerolog.Nop(),
	}
	line := paidLine("r1", 1, 100)
	a.ApplyAll([]*Line{line})

	if line.BaseRate != 90 || line.Rate != 45 {
		t.Fatalf("rate = %v base / %v doc, want 90 / 45", line.BaseRate, line.Rate)
	}
	if line.PriceListRate != 50 || line.DiscountAmount != 5 {
		t.Fatalf("doc-currency plr/discount = %v/%v, want 50/5", line.PriceListRate, line.DiscountAmount)
	}
}

func TestApplyAllSkipsFreeLines(t *testing.T) {
	a := &Applier{Index: discountIndex(10), Log: zerolog.Nop()}
	free := paidLine("r2", 1, 100)
	free.IsFree = true
	a.ApplyAll([]*Line{free})

	if free.Rate != 100 || len(free.Badge.Names) != 0 {
		t.Fatalf("free line must not be re-evaluated: %+v", free)
	}
}

func TestApplyAllCollectsFreebiesPerLine(t *testing.T) {
	idx := rules.NewIndex([]rules.Rule{{
		Name:     "b2g1",
		ItemCode: "SKU-1",
		Kind:     rules.KindFreeItem,
		MinQty:   2,
		FreeQty:  1,
		SameItem: true,
	}})
	a := &Applier{Index: idx, Log: zerolog.Nop()}
	l1 := paidLine("r1", 2, 100)
	l2 := paidLine("r2", 4, 100)
	got := a.ApplyAll([]*Line{l1, l2})

	if len(got) != 2 {
		t.Fatalf("freebie map size = %d, want one grant per triggering line", len(got))
	}
	if fb, ok := got["b2g1::SKU-1::r1"]; !ok || fb.Qty != 1 {
		t.Fatalf("missing or wrong grant for r1: %+v", got)
	}
	if fb, ok := got["b2g1::SKU-1::r2"]; !ok || fb.Qty != 1 {
		t.Fatalf("missing or wrong grant for r2: %+v", got)
	}
}
