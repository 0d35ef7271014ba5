// Package reconcile merges a raw remote page with the client-only parts of
// a filter state: predicates the remote source cannot express, re-sorting,
// and re-pagination of the over-fetched window. It performs no I/O and
// never mutates its inputs.
package reconcile

import (
	"sort"

	"shopwindow/internal/domain"
	"shopwindow/internal/filter"
)

// Reconcile applies, in order: client-side filtering, stable sorting, and
// re-pagination of the filtered+sorted sequence into the requested
// page/size window.
//
// The returned TotalCount is the remote-reported total passed through
// unchanged. When client-only predicates are active this overstates the
// true match count; that divergence is a known limitation kept for
// pagination consistency with the remote source, not corrected here.
func Reconcile(raw domain.PagedResult, f filter.FilterState) domain.PagedResult {
	items := applyPredicates(raw.Items, f)

	if f.Sort != filter.SortRelevance {
		sortItems(items, f.Sort)
	}

	// A non-positive page would otherwise compute a negative window.
	start := (f.Page - 1) * f.PageSize
	if start < 0 {
		start = 0
	}
	end := start + f.PageSize
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	return domain.PagedResult{
		Items:             items[start:end],
		TotalCount:        raw.TotalCount,
		RequestedPage:     f.Page,
		RequestedPageSize: f.PageSize,
	}
}

// applyPredicates keeps the records matching every active client-only
// constraint. Each predicate is independently optional; all present
// predicates are ANDed. The result is always a fresh slice so the raw
// page survives untouched.
func applyPredicates(items []domain.ProductRecord, f filter.FilterState) []domain.ProductRecord {
	kept := make([]domain.ProductRecord, 0, len(items))
	for _, p := range items {
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		if f.MinRating != nil && p.Rating < *f.MinRating {
			continue
		}
		if f.InStockOnly && p.Stock <= 0 {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// sortItems reorders in place. The sort is stable: ties keep their prior
// relative order, which makes pagination deterministic across repeated
// calls with identical inputs.
func sortItems(items []domain.ProductRecord, key filter.SortKey) {
	switch key {
	case filter.SortPriceAsc:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Price < items[j].Price })
	case filter.SortPriceDesc:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Price > items[j].Price })
	case filter.SortRatingDesc:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Rating > items[j].Rating })
	}
}
