package cart

import "github.com/noah-isme/pos-pricing/internal/common"

// InvoiceUpdates is the transaction-level outcome of a server
// reconciliation: an additional cart-wide discount plus the transaction
// rules the server applied.
type InvoiceUpdates struct {
	DiscountAmount               float64  `json:"discount_amount"`
	AdditionalDiscountPercentage float64  `json:"additional_discount_percentage"`
	PricingRules                 []string `json:"pricing_rules,omitempty"`
}

// Totals aggregates the cart after a pricing pass.
type Totals struct {
	NetTotal           float64 `json:"net_total"`
	BaseNetTotal       float64 `json:"base_net_total"`
	DiscountTotal      float64 `json:"discount_total"`
	AdditionalDiscount float64 `json:"additional_discount,omitempty"`
	PaidLineCount      int     `json:"paid_line_count"`
	FreeLineCount      int     `json:"free_line_count"`
}

// ComputeTotals sums the cart, folding in any invoice-level discount the
// reconciliation reported.
func ComputeTotals(lines []*Line, inv *InvoiceUpdates) Totals {
	var t Totals
	for _, line := range lines {
		if line == nil {
			continue
		}
		if line.IsFree {
			t.FreeLineCount++
			continue
		}
		t.PaidLineCount++
		t.NetTotal += line.Amount
		t.BaseNetTotal += line.BaseAmount
		t.DiscountTotal += line.DiscountAmount * common.NonNeg(line.Qty)
	}
	if inv != nil {
		additional := inv.DiscountAmount
		if additional == 0 && inv.AdditionalDiscountPercentage > 0 {
			additional = t.NetTotal * inv.AdditionalDiscountPercentage / 100
		}
		t.AdditionalDiscount = common.Clamp(additional, 0, t.NetTotal)
		t.NetTotal -= t.AdditionalDiscount
	}
	return t
}
