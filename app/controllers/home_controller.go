package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/plantnet/plantnet-server/pkg/ctx"
	"github.com/plantnet/plantnet-server/pkg/response"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HomeController struct {
	store Pinger
}

func NewHomeController(store Pinger) *HomeController {
	return &HomeController{store: store}
}

func (h *HomeController) Index(c *ctx.Context) {
	c.String(http.StatusOK, "PlantNet Server Running..")
}

func (h *HomeController) Health(c *ctx.Context) {
	status := map[string]string{"store": "ok"}
	if h.store != nil {
		pctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(pctx); err != nil {
			status["store"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, response.Envelope{
				Status:  http.StatusServiceUnavailable,
				Message: "Service Unavailable",
				Data:    status,
			})
			return
		}
	}
	c.Success(status)
}
