package domain

// CartItem is a single line in a shopping cart. Quantity is always >= 1;
// dropping a quantity to zero removes the line entirely.
type CartItem struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Thumbnail string  `json:"thumbnail"`
	Quantity  int     `json:"quantity"`
}

// CartTotals aggregates a cart the way the storefront displays it.
type CartTotals struct {
	TotalItems int     `json:"totalItems"`
	TotalPrice float64 `json:"totalPrice"`
}
