package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pos-backend/api/controllers"
	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/internal/analytics"
	"github.com/angelmondragon/pos-backend/internal/auth"
	"github.com/angelmondragon/pos-backend/internal/cart"
	"github.com/angelmondragon/pos-backend/internal/items"
	"github.com/angelmondragon/pos-backend/internal/orders"
	"github.com/angelmondragon/pos-backend/pkg/auth/session"
	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/printer"
	"github.com/angelmondragon/pos-backend/pkg/redis"
)

// NewRouter mounts the POS API. metricsHandler and device may be nil.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	metricsHandler http.Handler,
	authService auth.Service,
	itemService items.Service,
	orderService orders.Service,
	cartService cart.Service,
	analyticsService analytics.Service,
	device printer.Printer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	var (
		idempotencyStore redis.IdempotencyStore
		rateLimitStore   middleware.RateLimitStore
	)
	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["db"] = dbP
	}
	if redisClient != nil {
		idempotencyStore = redisClient
		rateLimitStore = redisClient
		readiness["redis"] = redisClient
	}

	authenticate := middleware.Auth(cfg.JWT, sessions, logg)
	idempotent := middleware.Idempotency(idempotencyStore, cfg.Orders.IdempotencyTTL, logg)
	adminOnly := middleware.RequireRole(logg, enums.RoleAdmin)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateLimitStore, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, rateLimitStore, logg), idempotent).Post("/register", controllers.AuthRegister(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/logout", controllers.AuthLogout(authService, logg))
			r.Get("/me", controllers.AuthMe(authService, logg))
			r.Post("/send-verify-otp", controllers.AuthSendVerifyOTP(authService, logg))
			r.Post("/verify-email", controllers.AuthVerifyEmail(authService, logg))
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(idempotent)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ListItems(itemService, logg))
			r.Get("/categories", controllers.ListCategories(itemService, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/", controllers.CreateItem(itemService, logg))
				r.Post("/import", controllers.ImportItems(itemService, logg))
				r.Put("/{itemId}", controllers.EditItem(itemService, logg))
				r.Post("/{itemId}/restock", controllers.RestockItem(itemService, logg))
				r.Delete("/{itemId}", controllers.DeleteItem(itemService, logg))
			})
		})

		r.With(adminOnly).Delete("/categories/{category}", controllers.DeleteCategory(itemService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(orderService, logg))
			r.Post("/", controllers.CreateOrder(orderService, logg))
			r.Get("/{orderId}", controllers.GetOrder(orderService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(cartService, logg))
			r.Delete("/", controllers.ClearCart(cartService, logg))
			r.Post("/items", controllers.AddCartItem(cartService, logg))
			r.Put("/items/{itemId}", controllers.UpdateCartItem(cartService, logg))
			r.Delete("/items/{itemId}", controllers.RemoveCartItem(cartService, logg))
			r.Post("/checkout", controllers.CheckoutCart(cartService, logg))
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/dashboard", controllers.AnalyticsDashboard(analyticsService, logg))
			r.Get("/export", controllers.AnalyticsExport(analyticsService, logg))
		})

		r.Post("/print/receipt", controllers.PrintReceipt(device, cfg.Printer.Title, logg))
	})

	return r
}
