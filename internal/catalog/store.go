package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads item metadata from Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ItemByCode fetches one item. The second return reports existence.
func (s *Store) ItemByCode(ctx context.Context, code string) (Item, bool, error) {
	const q = `
SELECT item_code, item_name, item_group, brand, uom, stock_uom, conversion_factor, price_list_rate
FROM items
WHERE item_code = $1 AND disabled = FALSE`
	var it Item
	err := s.pool.QueryRow(ctx, q, code).Scan(
		&it.Code,
		&it.Name,
		&it.ItemGroup,
		&it.Brand,
		&it.UOM,
		&it.StockUOM,
		&it.ConversionFactor,
		&it.PriceListRate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, false, nil
		}
		return Item{}, false, fmt.Errorf("query item %s: %w", code, err)
	}
	return it, true, nil
}

// SearchItems lists items whose code or name matches the term, for the
// point-of-sale item picker.
func (s *Store) SearchItems(ctx context.Context, term string, limit int) ([]Item, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `
SELECT item_code, item_name, item_group, brand, uom, stock_uom, conversion_factor, price_list_rate
FROM items
WHERE disabled = FALSE AND (item_code ILIKE '%' || $1 || '%' OR item_name ILIKE '%' || $1 || '%')
ORDER BY item_code
LIMIT $2`
	rows, err := s.pool.Query(ctx, q, term, limit)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.Code,
			&it.Name,
			&it.ItemGroup,
			&it.Brand,
			&it.UOM,
			&it.StockUOM,
			&it.ConversionFactor,
			&it.PriceListRate,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
