package domain

// ProductRecord represents a single product as served by the remote catalog.
// The id is the remote source's stable identifier.
type ProductRecord struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Brand              string   `json:"brand"`
	Category           string   `json:"category"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock"`
	Thumbnail          string   `json:"thumbnail"`
	Images             []string `json:"images"`
}

// Category is a catalog category as reported by the remote source.
// Product records reference categories by slug.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PagedResult is one page of products together with the remote-reported
// total. TotalCount is the count for the query as the remote source saw
// it; it is not recomputed after client-side filtering (see reconcile).
type PagedResult struct {
	Items             []ProductRecord `json:"items"`
	TotalCount        int             `json:"totalCount"`
	RequestedPage     int             `json:"requestedPage"`
	RequestedPageSize int             `json:"requestedPageSize"`
}
