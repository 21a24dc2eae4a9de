package routes

import (
	"net/http"

	"github.com/plantnet/plantnet-server/app/controllers"
	"github.com/plantnet/plantnet-server/pkg/auth"
	"github.com/plantnet/plantnet-server/pkg/ctx"
	"github.com/plantnet/plantnet-server/pkg/metrics"
	"github.com/plantnet/plantnet-server/pkg/middleware"
	"github.com/plantnet/plantnet-server/pkg/rbac"
	"github.com/plantnet/plantnet-server/pkg/router"
)

// API is everything the route table binds to.
type API struct {
	Home     *controllers.HomeController
	Plants   *controllers.PlantController
	Checkout *controllers.CheckoutController
	Orders   *controllers.OrderController
	Payments *controllers.PaymentController
	Users    *controllers.UserController

	Verifier auth.Verifier
	Roles    rbac.RoleLookup

	GraphQL http.Handler
	// Feed is the live order websocket. Optional.
	Feed http.Handler
	// Files serves the local storage disk under /storage. Optional.
	Files http.Handler
}

func RegisterAPI(r *router.Router, api API) {
	verified := router.Middleware(middleware.Auth(api.Verifier))
	admin := router.Middleware(rbac.HasRole(api.Roles, rbac.Admin))
	self := func(param string) router.Middleware { return rbac.SelfOrAdmin(api.Roles, param) }

	r.Get("/", "home", ctx.Wrap(api.Home.Index))
	r.Get("/healthz", "health", ctx.Wrap(api.Home.Health))
	r.Get("/metrics", "metrics", metrics.Handler())

	// Catalogue
	r.Post("/plants", "plants.store", ctx.Wrap(api.Plants.Store))
	r.Get("/plants", "plants.index", ctx.Wrap(api.Plants.Index))
	r.Post("/plants/images", "plants.images", ctx.Wrap(api.Plants.Upload), verified)
	r.Get("/plants/{id}", "plants.show", ctx.Wrap(api.Plants.Show))
	r.Patch("/plants/{id}", "plants.update", ctx.Wrap(api.Plants.Update), verified)
	r.Delete("/plants/{id}", "plants.destroy", ctx.Wrap(api.Plants.Destroy))
	r.Get("/my-inventory/{email}", "plants.inventory", ctx.Wrap(api.Plants.Inventory), verified, self("email"))

	// Checkout
	r.Post("/create-checkout-session", "checkout.create", ctx.Wrap(api.Checkout.CreateSession))
	r.Post("/payment-success", "checkout.confirm", ctx.Wrap(api.Checkout.PaymentSuccess))

	// Orders
	r.Delete("/orders/{id}", "orders.cancel", ctx.Wrap(api.Orders.Cancel))
	r.Patch("/orders/status/{id}", "orders.status", ctx.Wrap(api.Orders.UpdateStatus), verified)
	r.Get("/my-orders/{email}", "orders.mine", ctx.Wrap(api.Orders.Mine), verified, self("email"))
	r.Get("/manage-orders/{email}", "orders.manage", ctx.Wrap(api.Orders.Manage), verified, self("email"))
	r.Get("/manage-order/{email}", "orders.manage.legacy", ctx.Wrap(api.Orders.Manage), verified, self("email"))
	r.Get("/admin-orders", "orders.all", ctx.Wrap(api.Orders.All), verified, admin)

	// Payments
	r.Get("/payments", "payments.index", ctx.Wrap(api.Payments.Index), verified, admin)
	r.Get("/my-payments/{email}", "payments.mine", ctx.Wrap(api.Payments.Mine), verified, self("email"))
	r.Get("/payment/{id}", "payments.show", ctx.Wrap(api.Payments.Show), verified)

	// Users
	r.Post("/users/{email}", "users.save", ctx.Wrap(api.Users.Save))
	r.Patch("/users/update/{email}", "users.role", ctx.Wrap(api.Users.UpdateRole), verified, admin)
	r.Get("/users", "users.index", ctx.Wrap(api.Users.Index), verified, admin)
	r.Get("/users/{email}", "users.show", ctx.Wrap(api.Users.Show))
	r.Get("/admin-stat", "admin.stat", ctx.Wrap(api.Users.AdminStat), verified, admin)

	if api.GraphQL != nil {
		r.Post("/graphql", "graphql", api.GraphQL.ServeHTTP)
	}
	if api.Feed != nil {
		r.Get("/ws/orders", "ws.orders", api.Feed.ServeHTTP, verified, admin)
	}
	if api.Files != nil {
		r.Mount("/storage", http.StripPrefix("/storage", api.Files))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		ctx.Wrap(func(c *ctx.Context) { c.NotFound("Route not found") })(w, req)
	})
}
