package controllers

import (
	"github.com/plantnet/plantnet-server/app/services"
	"github.com/plantnet/plantnet-server/pkg/ctx"
)

type PaymentController struct {
	payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

func (p *PaymentController) Index(c *ctx.Context) {
	all, err := p.payments.All(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(all)
}

func (p *PaymentController) Mine(c *ctx.Context) {
	mine, err := p.payments.ForCustomer(c.Context(), c.Param("email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(mine)
}

func (p *PaymentController) Show(c *ctx.Context) {
	pay, err := p.payments.Find(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(pay)
}
