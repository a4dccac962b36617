package rules

import (
	"testing"
	"time"
)

func testCtx() Context {
	return Context{PriceList: "Retail", Currency: "IDR", Date: time.Now()}
}

func TestCandidatesBucketUnion(t *testing.T) {
	idx := NewIndex([]Rule{
		{Name: "on-item", ItemCode: "SKU-1", Value: 10},
		{Name: "on-group", ItemGroup: "Beverages", Value: 5},
		{Name: "on-brand", Brand: "Acme", Value: 3},
		{Name: "everywhere", Value: 1},
		{Name: "other-item", ItemCode: "SKU-2", Value: 50},
	})
	if idx.Size() != 5 {
		t.Fatalf("expected size 5, got %d", idx.Size())
	}

	got := idx.Candidates(ItemRef{Code: "SKU-1", Group: "Beverages", Brand: "Acme"}, testCtx())
	if len(got) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(got))
	}
	order := []string{"on-item", "on-group", "on-brand", "everywhere"}
	for i, name := range order {
		if got[i].Name != name {
			t.Fatalf("candidate %d = %s, want %s", i, got[i].Name, name)
		}
	}
}

func TestCandidatesDeduplicatesByName(t *testing.T) {
	// The same rule fanned out to two scopes appears once.
	idx := NewIndex([]Rule{
		{Name: "promo", ItemCode: "SKU-1", Value: 10},
		{Name: "promo", ItemGroup: "Beverages", Value: 10},
	})
	got := idx.Candidates(ItemRef{Code: "SKU-1", Group: "Beverages"}, testCtx())
	if len(got) != 1 {
		t.Fatalf("expected deduplication by name, got %d candidates", len(got))
	}
}

func TestCandidatesFiltersContextAtLookup(t *testing.T) {
	idx := NewIndex([]Rule{
		{Name: "retail-only", ItemCode: "SKU-1", PriceList: "Retail"},
		{Name: "wholesale-only", ItemCode: "SKU-1", PriceList: "Wholesale"},
	})
	got := idx.Candidates(ItemRef{Code: "SKU-1"}, testCtx())
	if len(got) != 1 || got[0].Name != "retail-only" {
		t.Fatalf("expected only the retail rule, got %+v", got)
	}
}

func TestCandidatesNilIndex(t *testing.T) {
	var idx *Index
	if got := idx.Candidates(ItemRef{Code: "SKU-1"}, testCtx()); got != nil {
		t.Fatalf("nil index must yield no candidates, got %v", got)
	}
	if idx.Size() != 0 {
		t.Fatal("nil index must report size 0")
	}
}
