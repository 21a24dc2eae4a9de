package server

import (
	"context"
	"fmt"
	"time"

	"github.com/plantnet/plantnet-server/app/controllers"
	"github.com/plantnet/plantnet-server/app/jobs"
	"github.com/plantnet/plantnet-server/app/listeners"
	"github.com/plantnet/plantnet-server/app/repositories"
	"github.com/plantnet/plantnet-server/app/routes"
	"github.com/plantnet/plantnet-server/app/schema"
	"github.com/plantnet/plantnet-server/app/services"
	"github.com/plantnet/plantnet-server/internal/kernel"
	"github.com/plantnet/plantnet-server/pkg/auth"
	"github.com/plantnet/plantnet-server/pkg/cache"
	"github.com/plantnet/plantnet-server/pkg/checkout"
	"github.com/plantnet/plantnet-server/pkg/event"
	pgql "github.com/plantnet/plantnet-server/pkg/graphql"
	"github.com/plantnet/plantnet-server/pkg/logger"
	"github.com/plantnet/plantnet-server/pkg/mail"
	"github.com/plantnet/plantnet-server/pkg/metrics"
	"github.com/plantnet/plantnet-server/pkg/middleware"
	"github.com/plantnet/plantnet-server/pkg/queue"
	"github.com/plantnet/plantnet-server/pkg/schedule"
	"github.com/plantnet/plantnet-server/pkg/storage"
	"github.com/plantnet/plantnet-server/pkg/workerpool"
	"github.com/plantnet/plantnet-server/pkg/ws"
)

// StalePendingAge is how long an unconfirmed order may sit before the
// scheduler counts it as abandoned.
const StalePendingAge = 24 * time.Hour

// Deps are the external collaborators of the application. Store, Gateway
// and Verifier are required; the rest fall back to in-process defaults.
type Deps struct {
	Store    *repositories.Store
	Pinger   controllers.Pinger
	Gateway  checkout.Gateway
	Verifier auth.Verifier

	Cache  *cache.Redis
	Disk   storage.Disk
	Broker listeners.Broker
	Queue  *queue.Manager
	Mailer mail.Mailer

	DomainURL string
	Currency  string
	CacheTTL  time.Duration
	// EventWorkers sizes the pool that runs async event listeners.
	EventWorkers int
	// RateLimit is requests per minute per client; 0 disables it.
	RateLimit int
}

// App is the wired application.
type App struct {
	Store *repositories.Store
	Bus   *event.Bus
	Pool  *workerpool.Pool
	Hub   *ws.Hub
	Queue *queue.Manager

	Checkout  *services.CheckoutService
	Orders    *services.OrderService
	Inventory *services.InventoryService
	Plants    *services.PlantService
	Users     *services.UserService
	Payments  *services.PaymentService
	Stats     *services.StatsService

	Kernel    *kernel.HTTPKernel
	Scheduler *schedule.Scheduler
	Limiter   *middleware.Limiter
}

// New wires services, controllers and routes over d.
func New(d Deps) (*App, error) {
	if d.Store == nil || d.Gateway == nil {
		return nil, fmt.Errorf("server: store and payment gateway are required")
	}
	if d.EventWorkers <= 0 {
		d.EventWorkers = 8
	}
	if d.Mailer == nil {
		d.Mailer = mail.LogMailer{}
	}
	if d.Queue == nil {
		d.Queue = queue.New(queue.NewMemoryDriver())
	}

	a := &App{
		Store: d.Store,
		Pool:  workerpool.New(d.EventWorkers),
		Hub:   ws.NewHub(d.DomainURL),
		Queue: d.Queue,
	}
	a.Bus = event.NewBus(a.Pool)

	jobs.Register(a.Queue, d.Store.Payments, d.Mailer)
	sinks := listeners.Sinks{Hub: a.Hub, Queue: a.Queue}
	if d.Broker != nil {
		sinks.Broker = d.Broker
	}
	listeners.Register(a.Bus, sinks)

	catalog := services.NewCatalogCache(d.Cache, d.CacheTTL)
	a.Inventory = services.NewInventoryService(d.Store.Plants, a.Bus, catalog)
	a.Checkout = services.NewCheckoutService(d.Store, d.Gateway, a.Inventory, a.Bus, services.CheckoutOptions{
		DomainURL: d.DomainURL,
		Currency:  d.Currency,
	})
	a.Orders = services.NewOrderService(d.Store.Orders, a.Inventory, a.Bus)
	a.Plants = services.NewPlantService(d.Store.Plants, catalog)
	a.Users = services.NewUserService(d.Store.Users)
	a.Payments = services.NewPaymentService(d.Store.Payments)
	a.Stats = services.NewStatsService(d.Store)

	gql, err := schema.NewCatalog(a.Plants)
	if err != nil {
		return nil, fmt.Errorf("server: graphql schema: %w", err)
	}

	api := routes.API{
		Home:     controllers.NewHomeController(d.Pinger),
		Checkout: controllers.NewCheckoutController(a.Checkout),
		Orders:   controllers.NewOrderController(a.Orders),
		Payments: controllers.NewPaymentController(a.Payments),
		Users:    controllers.NewUserController(a.Users, a.Stats),
		Verifier: d.Verifier,
		Roles:    a.Users,
		GraphQL:  pgql.Handler(gql),
		Feed:     a.Hub,
	}
	if d.Disk != nil {
		api.Plants = controllers.NewPlantController(a.Plants, services.NewImageService(d.Disk))
		if local, ok := d.Disk.(*storage.LocalDisk); ok {
			api.Files = local.Handler()
		}
	} else {
		api.Plants = controllers.NewPlantController(a.Plants, nil)
	}

	if d.RateLimit > 0 {
		a.Limiter = middleware.NewLimiter(d.RateLimit, time.Minute)
	}
	a.Kernel = kernel.NewHTTPKernel(api, kernel.Options{
		AllowedOrigins: []string{d.DomainURL},
		Limiter:        a.Limiter,
	})

	a.Scheduler = schedule.New()
	a.Scheduler.Every(15 * time.Minute).Name("orders:stale-pending").WithoutOverlapping().Run(a.countStale)

	return a, nil
}

// countStale exports the number of abandoned checkouts. Nothing is
// deleted: clients may still return and confirm them.
func (a *App) countStale(ctx context.Context) error {
	n, err := a.Orders.CountStale(ctx, StalePendingAge)
	if err != nil {
		return err
	}
	metrics.StalePendingOrders.Set(float64(n))
	if n > 0 {
		logger.WithCtx(ctx).Info("orders: stale pending checkouts", "count", n)
	}
	return nil
}

// Close stops the event pool after draining queued listeners.
func (a *App) Close() {
	a.Pool.Shutdown()
}
