package domain

// CartItem is one line of a cart. A stored item always has Quantity >= 1;
// a product that is not in the cart has no item at all.
type CartItem struct {
	Product  Product `json:"product" bson:"product"`
	Quantity int     `json:"quantity" bson:"quantity"`
}

// TotalQuantity sums quantities over items.
func TotalQuantity(items []CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
