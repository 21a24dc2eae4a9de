package controllers

import (
	"github.com/plantnet/plantnet-server/app/services"
	"github.com/plantnet/plantnet-server/pkg/ctx"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

func (o *OrderController) Cancel(c *ctx.Context) {
	res, err := o.orders.Cancel(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(res)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,in=Pending,In Progress,Delivered"`
}

func (o *OrderController) UpdateStatus(c *ctx.Context) {
	var in statusRequest
	if !c.BindJSON(&in) {
		return
	}
	order, err := o.orders.UpdateStatus(c.Context(), c.Param("id"), in.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}

func (o *OrderController) Mine(c *ctx.Context) {
	orders, err := o.orders.ForCustomer(c.Context(), c.Param("email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(orders)
}

// Manage lists the orders placed for a seller's plants.
func (o *OrderController) Manage(c *ctx.Context) {
	orders, err := o.orders.ForSeller(c.Context(), c.Param("email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(orders)
}

func (o *OrderController) All(c *ctx.Context) {
	orders, err := o.orders.All(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(orders)
}
