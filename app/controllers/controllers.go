// Package controllers holds the HTTP handlers. They bind and validate the
// request, call one service, and map its error to a status in fail.
package controllers

import (
	"errors"
	"net/http"

	"github.com/plantnet/plantnet-server/app/services"
	"github.com/plantnet/plantnet-server/pkg/ctx"
	"github.com/plantnet/plantnet-server/pkg/logger"
)

// fail is the single place where service errors become responses.
func fail(c *ctx.Context, err error) {
	var gw *services.GatewayError
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		c.Unauthorized()
	case errors.Is(err, services.ErrForbidden):
		c.Forbidden()
	case errors.Is(err, services.ErrPaymentNotCompleted):
		c.Error(http.StatusBadRequest, "Payment not completed")
	case errors.Is(err, services.ErrConfirmationIncomplete):
		logger.WithCtx(c.Context()).Warn("payment confirmation incomplete", "error", err)
		c.Error(http.StatusServiceUnavailable, "Payment confirmation incomplete, please retry")
	case errors.Is(err, services.ErrOrdersNotFound):
		c.Error(http.StatusNotFound, "No orders found for this checkout session")
	case errors.Is(err, services.ErrCancellationForbidden):
		c.Error(http.StatusConflict, "Cannot cancel once the product is delivered!")
	case errors.Is(err, services.ErrInvalidID):
		c.Error(http.StatusBadRequest, "Invalid id")
	case errors.Is(err, services.ErrNotFound):
		c.NotFound()
	case errors.Is(err, services.ErrInsufficientStock):
		c.Error(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		c.Error(http.StatusBadRequest, err.Error())
	case errors.As(err, &gw):
		logger.WithCtx(c.Context()).Warn("payment gateway call failed", "op", gw.Op, "error", gw.Err)
		c.Error(http.StatusBadGateway, "Payment gateway unavailable")
	default:
		c.InternalError(err)
	}
}
