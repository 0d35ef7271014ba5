// Package filter holds the canonical search/filter/sort/page state and its
// query-string encoding. Parse never hard-aborts: a field that cannot be
// coerced falls back to its default and the failure is reported through a
// ValidationError the caller can log.
package filter

import (
	"net/url"
	"strconv"

	"shopwindow/internal/domain"
)

// SortKey selects the ordering applied to reconciled results.
type SortKey string

const (
	SortRelevance  SortKey = "relevance"
	SortPriceAsc   SortKey = "price-asc"
	SortPriceDesc  SortKey = "price-desc"
	SortRatingDesc SortKey = "rating-desc"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxRating       = 5
)

// Query string keys mirrored in the browser address bar.
const (
	keyQuery     = "q"
	keyPage      = "page"
	keyPageSize  = "limit"
	keyCategory  = "category"
	keyMinPrice  = "minPrice"
	keyMaxPrice  = "maxPrice"
	keyMinRating = "minRating"
	keySort      = "sort"
	keyInStock   = "inStock"
)

// FilterState is the canonical query. Categories keep the insertion order
// of the incoming values (duplicates dropped); that order is also the
// serialization order, so URLs are stable under round-trips. Optional
// numeric bounds are nil when unconstrained.
type FilterState struct {
	Query       string
	Page        int
	PageSize    int
	Categories  []string
	MinPrice    *float64
	MaxPrice    *float64
	MinRating   *float64
	Sort        SortKey
	InStockOnly bool
}

// Default returns the state every field falls back to.
func Default() FilterState {
	return FilterState{
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
		Sort:     SortRelevance,
	}
}

// ValidSort reports whether s is one of the supported sort keys.
func ValidSort(s SortKey) bool {
	switch s {
	case SortRelevance, SortPriceAsc, SortPriceDesc, SortRatingDesc:
		return true
	}
	return false
}

// Parse builds a FilterState from raw query parameters. The returned state
// is always usable; the error, when non-nil, is a *domain.ValidationError
// listing the fields that were replaced by their defaults.
func Parse(params url.Values) (FilterState, error) {
	f := Default()
	verr := &domain.ValidationError{}

	if v := params.Get(keyQuery); v != "" {
		f.Query = v
	}

	if v := params.Get(keyPage); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			verr.Add(keyPage, "must be an integer >= 1")
		} else {
			f.Page = n
		}
	}

	if v := params.Get(keyPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxPageSize {
			verr.Add(keyPageSize, "must be an integer in [1,100]")
		} else {
			f.PageSize = n
		}
	}

	if vs := params[keyCategory]; len(vs) > 0 {
		seen := make(map[string]bool, len(vs))
		for _, c := range vs {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			f.Categories = append(f.Categories, c)
		}
	}

	f.MinPrice = parseBound(params, keyMinPrice, 0, -1, verr)
	f.MaxPrice = parseBound(params, keyMaxPrice, 0, -1, verr)
	f.MinRating = parseBound(params, keyMinRating, 0, MaxRating, verr)

	if v := params.Get(keySort); v != "" {
		if ValidSort(SortKey(v)) {
			f.Sort = SortKey(v)
		} else {
			verr.Add(keySort, "unknown sort key "+strconv.Quote(v))
		}
	}

	if v := params.Get(keyInStock); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			verr.Add(keyInStock, "must be a boolean")
		} else {
			f.InStockOnly = b
		}
	}

	return f, verr.OrNil()
}

// parseBound coerces an optional non-negative float with an optional upper
// limit (max < 0 means unbounded). Failures record a field error and leave
// the bound unset.
func parseBound(params url.Values, key string, min, max float64, verr *domain.ValidationError) *float64 {
	v := params.Get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < min || (max >= 0 && n > max) {
		low := strconv.FormatFloat(min, 'f', -1, 64)
		if max >= 0 {
			high := strconv.FormatFloat(max, 'f', -1, 64)
			verr.Add(key, "must be a number between "+low+" and "+high)
		} else {
			verr.Add(key, "must be a number >= "+low)
		}
		return nil
	}
	return &n
}

// Serialize is the right inverse of Parse: parsing the returned values
// yields an equal state. Fields equal to their implicit default are
// omitted entirely; empty strings are never emitted.
func (f FilterState) Serialize() url.Values {
	params := url.Values{}

	if f.Query != "" {
		params.Set(keyQuery, f.Query)
	}
	if f.Page != DefaultPage {
		params.Set(keyPage, strconv.Itoa(f.Page))
	}
	if f.PageSize != DefaultPageSize {
		params.Set(keyPageSize, strconv.Itoa(f.PageSize))
	}
	for _, c := range f.Categories {
		params.Add(keyCategory, c)
	}
	if f.MinPrice != nil {
		params.Set(keyMinPrice, formatFloat(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		params.Set(keyMaxPrice, formatFloat(*f.MaxPrice))
	}
	if f.MinRating != nil {
		params.Set(keyMinRating, formatFloat(*f.MinRating))
	}
	if f.Sort != SortRelevance {
		params.Set(keySort, string(f.Sort))
	}
	if f.InStockOnly {
		params.Set(keyInStock, "true")
	}

	return params
}

// Encode returns the canonical query string for the state.
func (f FilterState) Encode() string {
	return f.Serialize().Encode()
}

// Equal compares two states field by field, treating nil bounds as
// distinct from zero-valued ones.
func (f FilterState) Equal(o FilterState) bool {
	if f.Query != o.Query || f.Page != o.Page || f.PageSize != o.PageSize ||
		f.Sort != o.Sort || f.InStockOnly != o.InStockOnly {
		return false
	}
	if len(f.Categories) != len(o.Categories) {
		return false
	}
	for i := range f.Categories {
		if f.Categories[i] != o.Categories[i] {
			return false
		}
	}
	return boundEqual(f.MinPrice, o.MinPrice) &&
		boundEqual(f.MaxPrice, o.MaxPrice) &&
		boundEqual(f.MinRating, o.MinRating)
}

func boundEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
