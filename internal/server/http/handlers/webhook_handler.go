package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/server/http/dto"
)

// WebhookHandler receives provider callbacks. The body is passed on exactly
// as received because signatures cover the raw bytes.
type WebhookHandler struct {
	facade PaymentFacade
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade PaymentFacade) *WebhookHandler {
	return &WebhookHandler{facade: facade}
}

// Receive handles POST /api/webhooks/:method.
func (h *WebhookHandler) Receive(c *gin.Context) {
	method := model.PaymentMethod(c.Param("method"))
	if !method.Valid() {
		c.Status(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusBadRequest)
		return
	}

	result, err := h.facade.HandleWebhook(c.Request.Context(), method, c.Request.Header, body)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidSignature):
			c.Status(http.StatusUnauthorized)
		case errors.Is(err, domainErrors.ErrMalformedEvent):
			c.Status(http.StatusBadRequest)
		case errors.Is(err, domainErrors.ErrUnsupportedPaymentMethod):
			c.Status(http.StatusNotFound)
		default:
			_ = c.Error(err)
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, dto.WebhookResponse{Received: true, Result: string(result)})
}
