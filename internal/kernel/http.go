// Package kernel builds the HTTP handler: the global middleware stack
// around the route table.
package kernel

import (
	"net/http"

	"github.com/plantnet/plantnet-server/app/routes"
	"github.com/plantnet/plantnet-server/pkg/metrics"
	"github.com/plantnet/plantnet-server/pkg/middleware"
	"github.com/plantnet/plantnet-server/pkg/reqid"
	"github.com/plantnet/plantnet-server/pkg/router"
)

type Options struct {
	// AllowedOrigins are the storefront origins allowed by CORS.
	AllowedOrigins []string
	// Limiter caps requests per client. Nil disables rate limiting.
	Limiter *middleware.Limiter
}

type HTTPKernel struct {
	router *router.Router
}

func NewHTTPKernel(api routes.API, opts Options) *HTTPKernel {
	r := router.New()

	// Outermost first: metrics see total latency, recovery wraps everything
	// that can panic, the request id exists before anything logs.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(opts.AllowedOrigins...)))
	if opts.Limiter != nil {
		r.Use(middleware.RateLimit(opts.Limiter))
	}

	routes.RegisterAPI(r, api)
	return &HTTPKernel{router: r}
}

func (k *HTTPKernel) Handler() http.Handler { return k.router.Handler() }

// Routes lists the registered named routes.
func (k *HTTPKernel) Routes() []router.RouteInfo { return k.router.Routes() }
