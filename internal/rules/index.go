package rules

import "sort"

// Index is a pre-partitioned lookup over the active rule set. Buckets are
// presorted by precedence at construction; context filtering happens at
// lookup time so one index survives date or customer changes within a
// session.
type Index struct {
	byItem  map[string][]Rule
	byGroup map[string][]Rule
	byBrand map[string][]Rule
	general []Rule
	size    int
}

// NewIndex partitions rules into item/group/brand/general buckets.
func NewIndex(all []Rule) *Index {
	idx := &Index{
		byItem:  make(map[string][]Rule),
		byGroup: make(map[string][]Rule),
		byBrand: make(map[string][]Rule),
	}
	for _, r := range all {
		switch {
		case r.ItemCode != "":
			idx.byItem[r.ItemCode] = append(idx.byItem[r.ItemCode], r)
		case r.ItemGroup != "":
			idx.byGroup[r.ItemGroup] = append(idx.byGroup[r.ItemGroup], r)
		case r.Brand != "":
			idx.byBrand[r.Brand] = append(idx.byBrand[r.Brand], r)
		default:
			idx.general = append(idx.general, r)
		}
		idx.size++
	}
	for _, bucket := range idx.byItem {
		sortRules(bucket)
	}
	for _, bucket := range idx.byGroup {
		sortRules(bucket)
	}
	for _, bucket := range idx.byBrand {
		sortRules(bucket)
	}
	sortRules(idx.general)
	return idx
}

// Size reports how many rules the index holds.
func (idx *Index) Size() int {
	if idx == nil {
		return 0
	}
	return idx.size
}

// Candidates unions the item, group, brand and general buckets for the
// given item, de-duplicated by rule name with earlier buckets winning the
// initial slot, filtered by the context, then sorted by the precedence
// comparator. The comparator, not bucket order, decides true precedence.
func (idx *Index) Candidates(item ItemRef, ctx Context) []Rule {
	if idx == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []Rule
	collect := func(bucket []Rule) {
		for _, r := range bucket {
			if _, dup := seen[r.Name]; dup {
				continue
			}
			seen[r.Name] = struct{}{}
			if r.Matches(ctx) {
				out = append(out, r)
			}
		}
	}
	if item.Code != "" {
		collect(idx.byItem[item.Code])
	}
	if item.Group != "" {
		collect(idx.byGroup[item.Group])
	}
	if item.Brand != "" {
		collect(idx.byBrand[item.Brand])
	}
	collect(idx.general)
	sortRules(out)
	return out
}

func sortRules(bucket []Rule) {
	sort.SliceStable(bucket, func(i, j int) bool { return Less(bucket[i], bucket[j]) })
}
