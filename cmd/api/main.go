package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/api/routes"
	"github.com/angelmondragon/pos-backend/internal/analytics"
	"github.com/angelmondragon/pos-backend/internal/auth"
	"github.com/angelmondragon/pos-backend/internal/cart"
	"github.com/angelmondragon/pos-backend/internal/items"
	"github.com/angelmondragon/pos-backend/internal/orders"
	"github.com/angelmondragon/pos-backend/internal/users"
	"github.com/angelmondragon/pos-backend/pkg/auth/session"
	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/instance"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/mailer"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/migrate"
	"github.com/angelmondragon/pos-backend/pkg/printer"
	"github.com/angelmondragon/pos-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.LogConsole,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing connections", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	userRepo := users.NewRepository(dbClient.DB())
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		Mailer:         mailer.New(cfg.SMTP, logg),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		AdminEmail:     cfg.Bootstrap.AdminEmail,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}
	if err := authService.EnsureAdmin(context.Background(), cfg.Bootstrap.AdminEmail); err != nil {
		logg.Error(context.Background(), "failed to bootstrap admin", err)
		os.Exit(1)
	}

	itemRepo := items.NewRepository(dbClient.DB())
	itemService, err := items.NewService(itemRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create item service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	catalog := func(tx *gorm.DB) orders.Catalog { return itemRepo.WithTx(tx) }
	orderService, err := orders.NewService(ordersRepo, dbClient, catalog, cfg.Orders, metrics.NewOrderMetrics(registry))
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	cartStore, err := cart.NewStore(redisClient, cfg.Cart.TTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cartStore, itemRepo, orderService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(ordersRepo, itemRepo, cfg.Analytics)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	var device printer.Printer
	networkPrinter, err := printer.New(cfg.Printer)
	switch {
	case err == nil:
		device = networkPrinter
		logg.Info(logg.WithField(context.Background(), "printer_addr", networkPrinter.Addr()), "server printing enabled")
	case errors.Is(err, printer.ErrDisabled):
		logg.Info(context.Background(), "server printing disabled, receipts print client side")
	default:
		logg.Error(context.Background(), "invalid printer config", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
			authService,
			itemService,
			orderService,
			cartService,
			analyticsService,
			device,
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
