package cart

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-pricing/internal/catalog"
	"github.com/noah-isme/pos-pricing/internal/engine"
	"github.com/noah-isme/pos-pricing/internal/obs"
)

// CatalogLookup supplies item metadata when a free line has to be
// synthesized from scratch.
type CatalogLookup interface {
	ItemByCode(ctx context.Context, code string) (catalog.Item, bool, error)
}

// Synchronizer reconciles the cart's derived free lines against the
// freebie map of the current pricing pass. Line identity is stable: a key
// that stays in the map keeps its existing line object, updated in place.
type Synchronizer struct {
	Catalog  CatalogLookup
	NewRowID func() string
	Log      zerolog.Logger
}

// Sync returns the new line slice. Paid lines are never touched; free
// lines are updated, adopted, synthesized or removed so the cart matches
// exactly the map's key set.
func (s *Synchronizer) Sync(ctx context.Context, lines []*Line, want map[string]engine.Freebie) []*Line {
	byKey := make(map[string]*Line)
	var legacy []*Line
	for _, line := range lines {
		if line == nil || !line.IsFree {
			continue
		}
		if line.AutoFreeSource != "" {
			byKey[line.AutoFreeSource] = line
			continue
		}
		legacy = append(legacy, line)
	}

	keys := make([]string, 0, len(want))
	for key := range want {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	kept := make(map[*Line]bool)
	synthesized := make(map[string][]*Line)
	var orphans []*Line

	for _, key := range keys {
		fb := want[key]
		if line, ok := byKey[key]; ok {
			s.refresh(line, fb)
			kept[line] = true
			obs.ObserveFreeLineSync("refresh")
			continue
		}
		if line := adoptLegacy(legacy, fb); line != nil {
			line.AutoFreeSource = key
			line.SourceRule = fb.Rule
			s.refresh(line, fb)
			kept[line] = true
			obs.ObserveFreeLineSync("adopt")
			continue
		}
		line := s.synthesize(ctx, lines, fb, key)
		obs.ObserveFreeLineSync("create")
		if line.ParentRowID != "" {
			synthesized[line.ParentRowID] = append(synthesized[line.ParentRowID], line)
		} else {
			orphans = append(orphans, line)
		}
	}

	out := make([]*Line, 0, len(lines)+len(keys))
	for _, line := range lines {
		if line == nil {
			continue
		}
		if line.IsFree && !kept[line] {
			s.Log.Debug().Str("item", line.ItemCode).Str("source", line.AutoFreeSource).Msg("remove stale free line")
			obs.ObserveFreeLineSync("remove")
			continue
		}
		out = append(out, line)
		if !line.IsFree {
			out = append(out, synthesized[line.RowID]...)
		}
	}
	out = append(out, orphans...)
	return out
}

// refresh updates a surviving free line in place so row identity (and any
// external references to it) is preserved across recomputation.
func (s *Synchronizer) refresh(line *Line, fb engine.Freebie) {
	line.Qty = fb.Qty
	line.StockQty = fb.StockQty
	line.Rate = fb.Rate
	line.BaseRate = fb.BaseRate
	line.PriceListRate = fb.PriceListRate
	line.BasePriceListRate = fb.BasePriceListRate
	line.DiscountAmount = fb.DiscountAmount
	line.Amount = fb.Rate * fb.Qty
	line.BaseAmount = fb.BaseRate * fb.Qty
	if fb.UOM != "" {
		line.UOM = fb.UOM
	}
	if fb.ParentRowID != "" {
		line.ParentRowID = fb.ParentRowID
	}
}

func (s *Synchronizer) synthesize(ctx context.Context, lines []*Line, fb engine.Freebie, key string) *Line {
	line := &Line{
		RowID:          s.newRowID(),
		ItemCode:       fb.ItemCode,
		IsFree:         true,
		AutoFreeSource: key,
		SourceRule:     fb.Rule,
		ParentRowID:    fb.ParentRowID,
	}

	if parent := findRow(lines, fb.ParentRowID); parent != nil && (fb.SameItem || parent.ItemCode == fb.ItemCode) {
		// Same-SKU freebies inherit the paid line's unit of measure.
		line.ItemName = parent.ItemName
		line.ItemGroup = parent.ItemGroup
		line.Brand = parent.Brand
		line.UOM = parent.UOM
		line.StockUOM = parent.StockUOM
		line.ConversionFactor = parent.ConversionFactor
	} else if s.Catalog != nil {
		item, ok, err := s.Catalog.ItemByCode(ctx, fb.ItemCode)
		if err != nil {
			s.Log.Warn().Err(err).Str("item", fb.ItemCode).Msg("catalog lookup for free line failed")
		} else if ok {
			line.ItemName = item.Name
			line.ItemGroup = item.ItemGroup
			line.Brand = item.Brand
			line.UOM = item.UOM
			line.StockUOM = item.StockUOM
			line.ConversionFactor = item.ConversionFactor
		}
	}

	s.refresh(line, fb)
	return line
}

func (s *Synchronizer) newRowID() string {
	if s.NewRowID != nil {
		return s.NewRowID()
	}
	return uuid.NewString()
}

func adoptLegacy(legacy []*Line, fb engine.Freebie) *Line {
	for _, line := range legacy {
		if line.AutoFreeSource != "" {
			continue
		}
		if line.ItemCode != fb.ItemCode {
			continue
		}
		if line.SourceRule != "" && line.SourceRule != fb.Rule {
			continue
		}
		return line
	}
	return nil
}

func findRow(lines []*Line, rowID string) *Line {
	if rowID == "" {
		return nil
	}
	for _, line := range lines {
		if line != nil && line.RowID == rowID {
			return line
		}
	}
	return nil
}
