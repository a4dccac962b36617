// Package reconcile merges the authoritative backend recomputation into a
// locally priced cart. Network failure is never fatal: the pass keeps the
// local result and the user sees nothing.
package reconcile

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-pricing/internal/cart"
	"github.com/noah-isme/pos-pricing/internal/engine"
	"github.com/noah-isme/pos-pricing/internal/obs"
	"github.com/noah-isme/pos-pricing/internal/rules"
)

// ZeroGuardPolicy decides when a zeroed server rate on a paid line is an
// artifact of same-item free-unit bookkeeping rather than an intended
// price change. The trigger conditions are deliberately configurable: the
// upstream behaviour is a heuristic, not a protocol guarantee.
type ZeroGuardPolicy struct {
	Enabled                  bool
	RequireZeroPriceListRate bool
	RequireSameItemFreebie   bool
}

// DefaultZeroGuard mirrors the reference behaviour: block only when the
// server zeroed both rate fields and a same-item freebie targets the row.
func DefaultZeroGuard() ZeroGuardPolicy {
	return ZeroGuardPolicy{Enabled: true, RequireZeroPriceListRate: true, RequireSameItemFreebie: true}
}

// Blocks reports whether the update must be discarded for this line.
func (p ZeroGuardPolicy) Blocks(u LineUpdate, line *cart.Line, sameItemFree bool) bool {
	if !p.Enabled {
		return false
	}
	if u.Rate != 0 {
		return false
	}
	if p.RequireZeroPriceListRate && u.PriceListRate != 0 {
		return false
	}
	if p.RequireSameItemFreebie && !sameItemFree {
		return false
	}
	// Only worth guarding when the local values are non-zero.
	return line.BaseRate > 0 || line.BasePriceListRate > 0
}

// Reconciler implements cart.Reconciler against the remote endpoint.
type Reconciler struct {
	Client *Client
	Guard  ZeroGuardPolicy
	Log    zerolog.Logger

	mu        sync.Mutex
	snapshots map[string]engine.Freebie
}

// Reconcile posts the pass and merges the response. The bool result tells
// the session whether canonical data was merged; on any failure the local
// freebie map is returned untouched.
func (r *Reconciler) Reconcile(ctx context.Context, rctx rules.Context, lines []*cart.Line, local map[string]engine.Freebie, still func() bool) (map[string]engine.Freebie, *cart.InvoiceUpdates, bool) {
	r.remember(local)

	resp, err := r.Client.Do(ctx, buildRequest(rctx, lines))
	if err != nil {
		r.Log.Warn().Err(err).Msg("server reconciliation unavailable, keeping local pricing")
		obs.ObserveReconcile("error")
		return local, nil, false
	}
	if still != nil && !still() {
		r.Log.Debug().Msg("dropping stale reconciliation response")
		obs.ObserveReconcile("stale")
		return local, nil, false
	}

	sameItemRows := sameItemTargets(resp.FreeLines, local)
	for _, update := range resp.Updates {
		r.mergeUpdate(update, lines, rctx, sameItemRows)
	}

	merged := r.mergeFreebies(resp.FreeLines, local)
	obs.ObserveReconcile("ok")
	return merged, invoiceUpdates(resp.InvoiceUpdates), true
}

func buildRequest(rctx rules.Context, lines []*cart.Line) Request {
	req := Request{Context: rctx}
	for _, line := range lines {
		if line == nil {
			continue
		}
		if line.IsFree {
			req.FreeLines = append(req.FreeLines, FreeLine{
				ItemCode:   line.ItemCode,
				Qty:        line.Qty,
				SourceRule: line.SourceRule,
				Rate:       line.Rate,
				UOM:        line.UOM,
			})
			continue
		}
		req.Lines = append(req.Lines, PaidLine{
			RowID:          line.RowID,
			ItemCode:       line.ItemCode,
			ItemGroup:      line.ItemGroup,
			Brand:          line.Brand,
			UOM:            line.UOM,
			Qty:            line.Qty,
			StockQty:       line.PricingQty(),
			Rate:           line.BaseRate,
			PriceListRate:  line.BasePriceListRate,
			DiscountAmount: line.BaseDiscountAmount,
			PricingRules:   line.Badge.Names,
		})
	}
	return req
}

func (r *Reconciler) mergeUpdate(update LineUpdate, lines []*cart.Line, rctx rules.Context, sameItemRows map[string]bool) {
	line := locate(lines, update)
	if line == nil {
		return
	}
	if line.Protected() {
		// Badge metadata may still refresh; the rate never does.
		if len(update.PricingRules) > 0 {
			line.Badge = cart.Badge{
				Label:   update.PricingRules[0],
				Tooltip: strings.Join(update.PricingRules, ", "),
				Names:   update.PricingRules,
			}
		}
		return
	}
	sameItem := sameItemRows[line.RowID] || sameItemRows[line.ItemCode]
	if r.Guard.Blocks(update, line, sameItem) {
		r.Log.Debug().Str("row", line.RowID).Msg("zero guard retained local pricing for same-item freebie row")
		return
	}

	cr := rctx.ConversionRate
	if cr <= 0 {
		cr = 1
	}
	line.BaseRate = update.Rate
	line.BasePriceListRate = update.PriceListRate
	line.BaseDiscountAmount = update.DiscountAmount
	line.Rate = update.Rate / cr
	line.PriceListRate = update.PriceListRate / cr
	line.DiscountAmount = update.DiscountAmount / cr
	line.DiscountPercentage = update.DiscountPercentage
	line.BaseAmount = line.BaseRate * line.Qty
	line.Amount = line.Rate * line.Qty
	if len(update.PricingRules) > 0 {
		line.Badge = cart.Badge{
			Label:   update.PricingRules[0],
			Tooltip: strings.Join(update.PricingRules, ", "),
			Names:   update.PricingRules,
		}
	}
}

// mergeFreebies converts server free entries into descriptors, keeping
// local keys (with parent suffix) when a matching local entitlement exists
// and backfilling fields the server omitted from the per-key snapshot.
func (r *Reconciler) mergeFreebies(serverFree []ServerFreebie, local map[string]engine.Freebie) map[string]engine.Freebie {
	// Two paid lines of the same item can hold the same rule::item pair
	// under different parents; keep the lowest parent row so the merge
	// attaches the server entitlement deterministically.
	localByPair := make(map[string]engine.Freebie, len(local))
	for _, fb := range local {
		pair := fb.Rule + "::" + fb.ItemCode
		if prev, ok := localByPair[pair]; ok && prev.ParentRowID <= fb.ParentRowID {
			continue
		}
		localByPair[pair] = fb
	}

	out := make(map[string]engine.Freebie)
	for _, entry := range serverFree {
		if entry.Qty <= 0 {
			continue
		}
		fb := engine.Freebie{
			Rule:              entry.PricingRules,
			ItemCode:          entry.ItemCode,
			Qty:               entry.Qty,
			StockQty:          entry.Qty,
			SameItem:          entry.SameItem != 0,
			Rate:              entry.Rate,
			BaseRate:          entry.BaseRate,
			PriceListRate:     entry.PriceListRate,
			BasePriceListRate: entry.BasePriceListRate,
			DiscountAmount:    entry.DiscountAmount,
			UOM:               entry.UOM,
		}
		if prev, ok := localByPair[fb.Rule+"::"+fb.ItemCode]; ok {
			fb.ParentRowID = prev.ParentRowID
			fb.SameItem = fb.SameItem || prev.SameItem
		}
		r.backfill(&fb)
		if fb.BaseRate == 0 {
			fb.BaseRate = fb.Rate
		}
		if fb.BasePriceListRate == 0 {
			fb.BasePriceListRate = fb.PriceListRate
		}
		out[fb.Key()] = fb
	}
	// An empty section means the server computed no entitlements; the
	// returned map clears the cart's free lines on sync.
	return out
}

// remember stores the locally computed descriptors so later responses can
// fall back to them for omitted fields.
func (r *Reconciler) remember(local map[string]engine.Freebie) {
	r.mu.Lock()
	if r.snapshots == nil {
		r.snapshots = make(map[string]engine.Freebie)
	}
	for key, fb := range local {
		r.snapshots[key] = fb
	}
	r.mu.Unlock()
}

func (r *Reconciler) backfill(fb *engine.Freebie) {
	r.mu.Lock()
	prev, ok := r.snapshots[fb.Key()]
	r.mu.Unlock()
	if !ok {
		return
	}
	if fb.UOM == "" {
		fb.UOM = prev.UOM
	}
	if fb.Rate == 0 && fb.PriceListRate == 0 {
		fb.Rate = prev.Rate
		fb.PriceListRate = prev.PriceListRate
		fb.DiscountAmount = prev.DiscountAmount
	}
}

func locate(lines []*cart.Line, update LineUpdate) *cart.Line {
	for _, line := range lines {
		if line == nil || line.IsFree {
			continue
		}
		if update.RowID != "" && line.RowID == update.RowID {
			return line
		}
	}
	if update.ItemCode == "" {
		return nil
	}
	for _, line := range lines {
		if line == nil || line.IsFree {
			continue
		}
		if line.ItemCode == update.ItemCode {
			return line
		}
	}
	return nil
}

// sameItemTargets collects the row ids (and item codes, when the server
// does not echo rows) that a same-item freebie is tied to.
func sameItemTargets(serverFree []ServerFreebie, local map[string]engine.Freebie) map[string]bool {
	out := make(map[string]bool)
	for _, entry := range serverFree {
		if entry.SameItem != 0 {
			out[entry.ItemCode] = true
		}
	}
	for _, fb := range local {
		if fb.SameItem && fb.ParentRowID != "" {
			out[fb.ParentRowID] = true
		}
	}
	return out
}

func invoiceUpdates(in *InvoiceUpdates) *cart.InvoiceUpdates {
	if in == nil {
		return nil
	}
	return &cart.InvoiceUpdates{
		DiscountAmount:               in.DiscountAmount,
		AdditionalDiscountPercentage: in.AdditionalDiscountPercentage,
		PricingRules:                 in.PricingRules,
	}
}
