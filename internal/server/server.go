package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/plantnet/plantnet-server/app/repositories"
	"github.com/plantnet/plantnet-server/config"
	"github.com/plantnet/plantnet-server/pkg/auth"
	"github.com/plantnet/plantnet-server/pkg/broker"
	"github.com/plantnet/plantnet-server/pkg/cache"
	"github.com/plantnet/plantnet-server/pkg/checkout"
	"github.com/plantnet/plantnet-server/pkg/database"
	"github.com/plantnet/plantnet-server/pkg/grpc"
	"github.com/plantnet/plantnet-server/pkg/logger"
	"github.com/plantnet/plantnet-server/pkg/mail"
	"github.com/plantnet/plantnet-server/pkg/queue"
	"github.com/plantnet/plantnet-server/pkg/storage"
)

const (
	shutdownTimeout = 15 * time.Second
	failedJobs      = "failed_jobs"
	logCollection   = "logs"
)

// Resources are the live connections behind a Deps. Close releases them
// in reverse order of acquisition.
type Resources struct {
	Deps
	Mongo *database.Mongo

	closers []func(context.Context) error
}

func (r *Resources) onClose(fn func(context.Context) error) {
	r.closers = append(r.closers, fn)
}

func (r *Resources) Close(ctx context.Context) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			logger.Warn("server: close", "error", err)
		}
	}
	r.closers = nil
}

type alwaysUp struct{}

func (alwaysUp) Ping(context.Context) error { return nil }

// Connect opens every configured backend. Optional backends (Redis,
// Kafka) are skipped with a warning when unreachable.
func Connect(ctx context.Context) (*Resources, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}

	res := &Resources{Deps: Deps{
		DomainURL: config.DomainURL(),
		Currency:  config.Currency(),
		CacheTTL:  config.CatalogCacheTTL(),
		RateLimit: config.Int("RATE_LIMIT_PER_MINUTE", 300),
	}}

	if err := res.openStore(ctx); err != nil {
		res.Close(ctx)
		return nil, err
	}

	if rc, err := cache.Connect(ctx, config.RedisAddr(), config.RedisPassword()); err != nil {
		logger.Warn("server: redis unavailable, catalogue cache disabled", "addr", config.RedisAddr(), "error", err)
	} else {
		res.Cache = rc
		res.onClose(func(context.Context) error { return rc.Close() })
	}

	if brokers := config.KafkaBrokers(); len(brokers) > 0 {
		kp, err := broker.Dial(ctx, brokers, 5, 2*time.Second)
		if err != nil {
			logger.Warn("server: kafka unavailable, events stay in-process", "error", err)
		} else {
			res.Broker = kp
			res.onClose(func(context.Context) error { return kp.Close() })
		}
	}

	res.Queue = res.openQueue()

	gw, err := openGateway()
	if err != nil {
		res.Close(ctx)
		return nil, err
	}
	res.Gateway = gw

	v, err := openVerifier()
	if err != nil {
		res.Close(ctx)
		return nil, err
	}
	res.Verifier = v

	disk, err := storage.Open(ctx, storage.FromEnv())
	if err != nil {
		res.Close(ctx)
		return nil, err
	}
	res.Disk = disk

	if smtp := mail.ConfigFromEnv(); smtp.Configured() {
		res.Mailer = mail.NewSMTPMailer(smtp)
	} else {
		res.Mailer = mail.LogMailer{}
	}
	return res, nil
}

func (r *Resources) openStore(ctx context.Context) error {
	if config.StoreDriver() == "memory" {
		logger.Warn("server: using the in-memory store, data is lost on exit")
		r.Store, _ = repositories.NewMemoryStore()
		r.Pinger = alwaysUp{}
		return nil
	}

	db, err := database.Connect(ctx, config.MongoURI(), config.MongoDatabase())
	if err != nil {
		return err
	}
	r.Mongo = db
	r.onClose(db.Disconnect)

	if err := db.EnsureIndexes(ctx, repositories.Indexes()); err != nil {
		return fmt.Errorf("server: ensure indexes: %w", err)
	}
	r.Store = repositories.NewMongoStore(db)
	r.Pinger = db

	if config.LogToMongo() {
		h := logger.NewMongoHandler(ctx, db.Collection(logCollection))
		logger.Tee(h)
		r.onClose(func(context.Context) error { h.Close(); return nil })
	}
	return nil
}

func (r *Resources) openQueue() *queue.Manager {
	var opts []queue.Option
	if r.Mongo != nil {
		opts = append(opts, queue.WithFailedStore(queue.NewMongoFailedStore(r.Mongo.Collection(failedJobs))))
	}
	if config.QueueDriver() == "redis" && r.Cache != nil {
		return queue.New(queue.NewRedisDriver(r.Cache.Client()), opts...)
	}
	return queue.New(queue.NewMemoryDriver(), opts...)
}

// openGateway prefers Stripe. Outside production a missing secret falls
// back to a sandbox that settles every session immediately.
func openGateway() (checkout.Gateway, error) {
	if secret := config.StripeSecret(); secret != "" {
		return checkout.NewStripeGateway(secret, nil), nil
	}
	if config.IsProduction() {
		return nil, errors.New("server: STRIPE_SECRET is required in production")
	}
	logger.Warn("server: STRIPE_SECRET not set, using the sandbox payment gateway")
	sb := checkout.NewSandbox()
	sb.AutoPay = true
	return sb, nil
}

func openVerifier() (auth.Verifier, error) {
	project := config.FirebaseProjectID()
	if project == "" && config.FirebaseServiceKey() != "" {
		var err error
		if project, err = auth.ProjectIDFromServiceKey(config.FirebaseServiceKey()); err != nil {
			return nil, err
		}
	}
	if project == "" {
		if config.IsProduction() {
			return nil, errors.New("server: FB_SERVICE_KEY is required in production")
		}
		logger.Warn("server: no Firebase project configured, protected routes will reject every token")
	}
	return auth.NewFirebaseVerifier(project, auth.NewCertSource(auth.GoogleCertsURL)), nil
}

// Start connects, serves HTTP and gRPC, and runs the background workers
// until SIGINT or SIGTERM.
func Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		res.Close(cctx)
	}()

	a, err := New(res.Deps)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Serve(ctx, res)
}

// Serve blocks until ctx is done, then drains HTTP and gRPC.
func (a *App) Serve(ctx context.Context, res *Resources) error {
	go a.Hub.Run(ctx)
	go a.Scheduler.Start(ctx)
	go a.Queue.Work(ctx, config.QueueWorkers())
	if a.Limiter != nil {
		go a.Limiter.Run(ctx)
	}

	rpc, err := grpc.Start(config.GRPCPort())
	if err != nil {
		return err
	}
	defer rpc.Stop()
	if res.Pinger != nil {
		go rpc.WatchHealth(ctx, res.Pinger.Ping, 10*time.Second)
	}

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           a.Kernel.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("PlantNet server listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("PlantNet server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
