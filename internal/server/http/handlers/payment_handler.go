package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/server/http/dto"
)

// PaymentHandler manages payment intent and capture endpoints.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

// Intent handles POST /api/payments/intent.
func (h *PaymentHandler) Intent(c *gin.Context) {
	var req dto.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	intent, err := h.facade.CreatePaymentIntent(c.Request.Context(), model.IntentInput{
		UserID:  CurrentUserID(c),
		OrderID: req.OrderID,
		Method:  model.PaymentMethod(req.PaymentMethod),
		Amount:  req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrOrderNotPending):
			c.Status(http.StatusConflict)
		case errors.Is(err, domainErrors.ErrPaymentMethodMismatch),
			errors.Is(err, domainErrors.ErrAmountMismatch),
			errors.Is(err, domainErrors.ErrUnsupportedPaymentMethod):
			c.Status(http.StatusUnprocessableEntity)
		default:
			_ = c.Error(err)
			c.Status(http.StatusBadGateway)
		}
		return
	}

	c.JSON(http.StatusOK, dto.IntentResponse{
		Method:       string(intent.Method),
		OrderID:      intent.OrderID,
		Reference:    intent.Reference,
		CheckoutURL:  intent.CheckoutURL,
		ClientSecret: intent.ClientSecret,
	})
}

// Capture handles POST /api/payments/capture. It blocks while the charge is
// polled and answers from the stored order: success only when it is PAID, 202
// while it is still pending, 404 when the charge matches no order.
func (h *PaymentHandler) Capture(c *gin.Context) {
	var req dto.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	method := model.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		c.Status(http.StatusUnprocessableEntity)
		return
	}

	res, err := h.facade.Capture(c.Request.Context(), method, req.ChargeCode)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrPollTimeout),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusAccepted, dto.CaptureResponse{Success: false, Status: "pending"})
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrUnsupportedPaymentMethod):
			c.Status(http.StatusUnprocessableEntity)
		default:
			_ = c.Error(err)
			c.Status(http.StatusBadGateway)
		}
		return
	}
	if res == nil || res.Order == nil {
		c.Status(http.StatusNotFound)
		return
	}

	switch res.Order.Status {
	case model.OrderStatusPaid:
		resp := dto.CaptureResponse{Success: true, Status: "paid"}
		if res.Order.TransactionID != nil {
			resp.TransactionID = *res.Order.TransactionID
		}
		c.JSON(http.StatusOK, resp)
	case model.OrderStatusCancelled:
		c.JSON(http.StatusOK, dto.CaptureResponse{Success: false, Status: "cancelled"})
	default:
		c.JSON(http.StatusAccepted, dto.CaptureResponse{Success: false, Status: "pending"})
	}
}
