package dto

// StockResponse is the stock face of a product.
type StockResponse struct {
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
}
