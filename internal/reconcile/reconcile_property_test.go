package reconcile

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"shopwindow/internal/domain"
	"shopwindow/internal/filter"
)

func genProducts() gopter.Gen {
	genProduct := gopter.CombineGens(
		gen.IntRange(1, 10000),
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 5),
		gen.IntRange(0, 50),
	).Map(func(vals []interface{}) domain.ProductRecord {
		return domain.ProductRecord{
			ID:     vals[0].(int),
			Price:  vals[1].(float64),
			Rating: vals[2].(float64),
			Stock:  vals[3].(int),
		}
	})
	return gen.SliceOf(genProduct)
}

func genPredicateFilter() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 10),
		gen.IntRange(1, 20),
		gen.Float64Range(0, 300),
		gen.Float64Range(0, 300),
		gen.Float64Range(0, 5),
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
		gen.OneConstOf(filter.SortRelevance, filter.SortPriceAsc, filter.SortPriceDesc, filter.SortRatingDesc),
	).Map(func(vals []interface{}) filter.FilterState {
		f := filter.Default()
		f.Page = vals[0].(int)
		f.PageSize = vals[1].(int)
		if vals[5].(bool) {
			v := vals[2].(float64)
			f.MinPrice = &v
		}
		if vals[6].(bool) {
			v := vals[3].(float64)
			f.MaxPrice = &v
		}
		if vals[7].(bool) {
			v := vals[4].(float64)
			f.MinRating = &v
		}
		f.InStockOnly = vals[8].(bool)
		f.Sort = vals[9].(filter.SortKey)
		return f
	})
}

func TestProperty_ActivePredicatesHoldOnOutput(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every output record satisfies every active predicate", prop.ForAll(
		func(items []domain.ProductRecord, f filter.FilterState) bool {
			got := Reconcile(domain.PagedResult{Items: items, TotalCount: len(items)}, f)
			for _, p := range got.Items {
				if f.MinPrice != nil && p.Price < *f.MinPrice {
					return false
				}
				if f.MaxPrice != nil && p.Price > *f.MaxPrice {
					return false
				}
				if f.MinRating != nil && p.Rating < *f.MinRating {
					return false
				}
				if f.InStockOnly && p.Stock <= 0 {
					return false
				}
			}
			return true
		},
		genProducts(),
		genPredicateFilter(),
	))

	properties.TestingRun(t)
}

func TestProperty_WindowNeverExceedsPageSize(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("len(items) <= pageSize", prop.ForAll(
		func(items []domain.ProductRecord, f filter.FilterState) bool {
			got := Reconcile(domain.PagedResult{Items: items, TotalCount: len(items)}, f)
			return len(got.Items) <= f.PageSize
		},
		genProducts(),
		genPredicateFilter(),
	))

	properties.TestingRun(t)
}

func TestProperty_PriceAscOutputIsNonDecreasing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("price-asc yields non-decreasing prices", prop.ForAll(
		func(items []domain.ProductRecord) bool {
			f := filter.Default()
			f.Sort = filter.SortPriceAsc
			f.PageSize = filter.MaxPageSize

			got := Reconcile(domain.PagedResult{Items: items, TotalCount: len(items)}, f)
			for i := 1; i < len(got.Items); i++ {
				if got.Items[i-1].Price > got.Items[i].Price {
					return false
				}
			}
			return true
		},
		genProducts(),
	))

	properties.TestingRun(t)
}
