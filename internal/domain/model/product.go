package model

// Product is the stock face of a catalog product.
type Product struct {
	ID    string
	Stock int
}
