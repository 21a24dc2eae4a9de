package controllers

import (
	"github.com/plantnet/plantnet-server/app/services"
	"github.com/plantnet/plantnet-server/pkg/ctx"
)

type CheckoutController struct {
	checkout *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

// CreateSession starts a hosted checkout for the cart.
func (h *CheckoutController) CreateSession(c *ctx.Context) {
	var in services.CheckoutRequest
	if !c.BindJSON(&in) {
		return
	}
	res, err := h.checkout.CreateSession(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(res)
}

type confirmRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// PaymentSuccess reconciles a session after the gateway redirect. Clients
// may retry it freely.
func (h *CheckoutController) PaymentSuccess(c *ctx.Context) {
	var in confirmRequest
	if !c.BindJSON(&in) {
		return
	}
	res, err := h.checkout.Confirm(c.Context(), in.SessionID)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(res)
}
