package cart

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-pricing/internal/engine"
	"github.com/noah-isme/pos-pricing/internal/obs"
	"github.com/noah-isme/pos-pricing/internal/rules"
)

// Reconciler requests a canonical recomputation from the pricing backend
// and merges it into the lines. It returns the final freebie map, any
// invoice-level updates, and whether a server response was actually
// merged. still reports whether the originating pass is current; a stale
// response must not be merged.
type Reconciler interface {
	Reconcile(ctx context.Context, rctx rules.Context, lines []*Line, local map[string]engine.Freebie, still func() bool) (map[string]engine.Freebie, *InvoiceUpdates, bool)
}

// Session owns one cart: its lines, its commercial context, its rule
// index, and the debounced recompute loop. Sessions are not shared across
// carts so the only locking is the session's own.
type Session struct {
	ID string

	mu      sync.Mutex
	ctx     rules.Context
	index   *rules.Index
	lines   []*Line
	totals  Totals
	invoice *InvoiceUpdates

	running bool
	pending bool
	seq     uint64

	timerMu sync.Mutex
	timer   *time.Timer

	Sync       *Synchronizer
	Reconciler Reconciler
	Tasks      *TaskCache
	Debounce   time.Duration
	Log        zerolog.Logger
}

// Context returns the session's commercial context.
func (s *Session) Context() rules.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// SetContext replaces the commercial context and rule index, then
// schedules a recompute. Called on customer/price-list/currency change.
func (s *Session) SetContext(rctx rules.Context, index *rules.Index) {
	s.mu.Lock()
	s.ctx = rctx
	s.index = index
	s.mu.Unlock()
	if index != nil {
		obs.SetRuleIndexSize(index.Size())
	}
	s.SchedulePricing()
}

// Lines returns a snapshot copy of the line slice. The pointed-to lines
// are shared; callers must treat them as read-only.
func (s *Session) Lines() []*Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Totals returns the totals of the last completed pass.
func (s *Session) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// AddLine appends a paid line and schedules a recompute.
func (s *Session) AddLine(line *Line) {
	if line == nil {
		return
	}
	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.mu.Unlock()
	s.SchedulePricing()
}

// UpdateQty changes a line's quantity. Free and unknown rows are ignored.
func (s *Session) UpdateQty(rowID string, qty float64) bool {
	s.mu.Lock()
	line := findRow(s.lines, rowID)
	if line == nil || line.IsFree {
		s.mu.Unlock()
		return false
	}
	line.Qty = qty
	line.StockQty = 0
	s.mu.Unlock()
	if s.Tasks != nil {
		s.Tasks.Evict(rowID)
	}
	s.SchedulePricing()
	return true
}

// SetManualRate pins a user-entered rate on a line. Pinned lines are never
// rewritten by rule evaluation or reconciliation.
func (s *Session) SetManualRate(rowID string, rate float64) bool {
	s.mu.Lock()
	line := findRow(s.lines, rowID)
	if line == nil || line.IsFree {
		s.mu.Unlock()
		return false
	}
	line.ManualRateSet = true
	line.BaseRate = rate
	cr := 1.0
	if s.ctx.ConversionRate > 0 {
		cr = s.ctx.ConversionRate
	}
	line.Rate = rate / cr
	line.Amount = line.Rate * line.Qty
	line.BaseAmount = line.BaseRate * line.Qty
	s.mu.Unlock()
	s.SchedulePricing()
	return true
}

// RemoveLine deletes a paid line (and implicitly, on the next pass, any
// free lines it generated).
func (s *Session) RemoveLine(rowID string) bool {
	s.mu.Lock()
	removed := false
	filtered := s.lines[:0]
	for _, line := range s.lines {
		if line != nil && line.RowID == rowID && !line.IsFree {
			removed = true
			continue
		}
		filtered = append(filtered, line)
	}
	s.lines = filtered
	s.mu.Unlock()
	if removed {
		if s.Tasks != nil {
			s.Tasks.Evict(rowID)
		}
		s.SchedulePricing()
	}
	return removed
}

// SchedulePricing arms the trailing-edge debounce timer. Rapid successive
// edits collapse into one recomputation.
func (s *Session) SchedulePricing() {
	d := s.Debounce
	if d <= 0 {
		d = 150 * time.Millisecond
	}
	s.timerMu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, func() {
		s.ApplyPricingRules(context.Background(), false)
	})
	s.timerMu.Unlock()
}

// ApplyPricingRules runs one full pricing pass. At most one pass is in
// flight; a trigger that arrives mid-pass is coalesced into exactly one
// follow-up pass. force disarms any pending debounce timer and runs now.
func (s *Session) ApplyPricingRules(ctx context.Context, force bool) {
	if force {
		s.timerMu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timerMu.Unlock()
	}
	s.mu.Lock()
	if s.running {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	for {
		s.runPass(ctx)
		s.mu.Lock()
		if s.pending {
			s.pending = false
			s.mu.Unlock()
			continue
		}
		s.running = false
		s.mu.Unlock()
		return
	}
}

func (s *Session) runPass(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	mySeq := s.seq

	applier := &Applier{Index: s.index, Ctx: s.ctx, Log: s.Log}
	freebies := applier.ApplyAll(s.lines)

	reconciled := false
	if s.Reconciler != nil {
		still := func() bool { return s.seq == mySeq }
		merged, invoice, ok := s.Reconciler.Reconcile(ctx, s.ctx, s.lines, freebies, still)
		if ok {
			freebies = merged
			s.invoice = invoice
			reconciled = true
		}
	}

	if s.Sync != nil {
		s.lines = s.Sync.Sync(ctx, s.lines, freebies)
	}
	s.totals = ComputeTotals(s.lines, s.invoice)

	obs.ObservePricingPass(reconciled, time.Since(start))
	s.Log.Debug().
		Uint64("pass", mySeq).
		Bool("reconciled", reconciled).
		Int("lines", len(s.lines)).
		Int("freebies", len(freebies)).
		Dur("took", time.Since(start)).
		Msg("pricing pass complete")
}
