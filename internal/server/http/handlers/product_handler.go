package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/server/http/dto"
)

// ProductHandler exposes product stock.
type ProductHandler struct {
	facade ProductFacade
}

func NewProductHandler(facade ProductFacade) *ProductHandler {
	return &ProductHandler{facade: facade}
}

// Stock handles GET /api/products/:id/stock.
func (h *ProductHandler) Stock(c *gin.Context) {
	product, err := h.facade.ProductStock(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, dto.StockResponse{ProductID: product.ID, Stock: product.Stock})
}
