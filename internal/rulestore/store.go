package rulestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/pos-pricing/internal/rules"
)

// Store loads pricing rules from Postgres. A rule row names the mutation;
// its targets live in a child table and each target becomes one rule in
// the result, so the in-memory index sees exactly one scope per rule.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type ruleRow struct {
	rules.Rule
	slabsRaw []byte
}

// ActiveRules returns the enabled selling rules whose validity window
// covers the context date, fanned out per target. Party and price-list
// filters stay in Matches so one snapshot serves every lookup.
func (s *Store) ActiveRules(ctx context.Context, rctx rules.Context) ([]rules.Rule, error) {
	day := rctx.Date
	if day.IsZero() {
		day = time.Now()
	}
	const q = `
SELECT
  r.name, r.priority,
  COALESCE(t.item_code, ''), COALESCE(t.item_group, ''), COALESCE(t.brand, ''),
  r.valid_from, r.valid_upto,
  COALESCE(r.customer, ''), COALESCE(r.customer_group, ''), COALESCE(r.territory, ''),
  COALESCE(r.for_price_list, ''), COALESCE(r.currency, ''),
  r.min_qty, COALESCE(r.slabs, '[]'::jsonb),
  r.kind, r.value, r.override_is_delta, r.margin_is_percent,
  r.stop_further_rules, r.apply_multiple,
  COALESCE(r.free_item, ''), r.free_qty, r.free_qty_per_unit,
  r.apply_per_threshold, r.recurse_for, r.max_free_qty, r.round_free_qty,
  r.same_item, r.free_item_rate, r.free_item_price_list_rate, COALESCE(r.free_item_uom, '')
FROM pricing_rules r
LEFT JOIN pricing_rule_targets t ON t.rule_name = r.name
WHERE r.disabled = FALSE
  AND r.selling = TRUE
  AND (r.company = '' OR r.company = $1)
  AND (r.valid_from IS NULL OR r.valid_from <= $2)
  AND (r.valid_upto IS NULL OR r.valid_upto >= $2)
ORDER BY r.name, t.item_code, t.item_group, t.brand`
	rows, err := s.pool.Query(ctx, q, rctx.Company, day)
	if err != nil {
		return nil, fmt.Errorf("query pricing rules: %w", err)
	}
	defer rows.Close()

	var out []rules.Rule
	for rows.Next() {
		var rr ruleRow
		if err := rows.Scan(
			&rr.Name, &rr.Priority,
			&rr.ItemCode, &rr.ItemGroup, &rr.Brand,
			&rr.ValidFrom, &rr.ValidUpto,
			&rr.Customer, &rr.CustomerGroup, &rr.Territory,
			&rr.PriceList, &rr.Currency,
			&rr.MinQty, &rr.slabsRaw,
			&rr.Kind, &rr.Value, &rr.OverrideIsDelta, &rr.MarginIsPercent,
			&rr.StopFurtherRules, &rr.ApplyMultiple,
			&rr.FreeItem, &rr.FreeQty, &rr.FreeQtyPerUnit,
			&rr.ApplyPerThreshold, &rr.RecurseFor, &rr.MaxFreeQty, &rr.RoundFreeQty,
			&rr.SameItem, &rr.FreeItemRate, &rr.FreeItemPriceListRate, &rr.FreeItemUOM,
		); err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		if len(rr.slabsRaw) > 0 {
			if err := json.Unmarshal(rr.slabsRaw, &rr.Slabs); err != nil {
				return nil, fmt.Errorf("decode slabs for %s: %w", rr.Name, err)
			}
		}
		out = append(out, rr.Rule)
	}
	return out, rows.Err()
}
