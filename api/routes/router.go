package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/controllers/proxy"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/stores"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/dcap"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Dependencies are the services the HTTP surface is built from.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	RateLimiter middleware.RateLimiter
	Idempotency redis.IdempotencyStore
	Readiness   map[string]controllers.Pinger
	Metrics     http.Handler

	Upstream *livedatanow.Client
	Payments *dcap.Client

	Stores   stores.Service
	Auth     auth.Manager
	Carts    cart.Service
	CartBus  cart.Bus
	Checkout checkout.Service
	Catalog  catalog.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginPhoneLimit,
	)
	otpPolicy := middleware.NewAuthRateLimitPolicy(
		"otp",
		cfg.AuthRateLimit.OTPWindow,
		cfg.AuthRateLimit.OTPIPLimit,
		cfg.AuthRateLimit.OTPPhoneLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Readiness, logg))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	// Pass-through routes answer with upstream JSON, not the {data} envelope.
	onlineOrder := proxy.OnlineOrder(deps.Upstream, logg)
	for _, prefix := range []string{"/api/proxy/*", "/api/online-order/*"} {
		r.Get(prefix, onlineOrder)
		r.Post(prefix, onlineOrder)
		r.Put(prefix, onlineOrder)
	}
	r.Get("/api/my-orders", proxy.MyOrders(deps.Upstream, cfg.Upstream.WebOrderToken, logg))
	r.Post("/api/payment/acquire-api-key", proxy.AcquireAPIKey(deps.Payments, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Device(cfg.Device, logg))
		r.Use(middleware.StoreContext(deps.Stores, logg))

		r.Get("/store", controllers.StoreCurrent(logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimiter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(otpPolicy, deps.RateLimiter, logg)).Post("/verify-otp", controllers.AuthVerifyOTP(deps.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			r.Get("/session", controllers.AuthSession(deps.Auth, logg))
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.ProfileFetch(deps.Auth, logg))
			r.Put("/", controllers.ProfileUpdate(deps.Auth, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Carts, logg))
			r.Delete("/", controllers.CartClear(deps.Carts, logg))
			r.Get("/events", controllers.CartEvents(deps.Carts, deps.CartBus, cfg.App.CORSOrigins, logg))
			r.Post("/items", controllers.CartAdd(deps.Carts, logg))
			r.Patch("/items/{index}", controllers.CartUpdateQuantity(deps.Carts, logg))
			r.Delete("/items/{index}", controllers.CartRemove(deps.Carts, logg))
		})

		r.With(middleware.Idempotency(deps.Idempotency, cfg.Checkout.IdempotencyTTL, logg)).
			Post("/checkout", controllers.CheckoutPlaceOrder(deps.Checkout, logg))
		r.Get("/orders", controllers.CheckoutHistory(deps.Checkout, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/departments", controllers.CatalogDepartments(deps.Catalog, logg))
			r.Get("/kitchens", controllers.CatalogKitchens(deps.Catalog, logg))
			r.Get("/modifier-groups", controllers.CatalogModifierGroups(deps.Catalog, logg))
			r.Get("/products", controllers.CatalogProducts(deps.Catalog, logg))
			r.Get("/products/{productID}", controllers.CatalogProductDetail(deps.Catalog, logg))
			r.Post("/products/{productID}/quote", controllers.CatalogQuote(deps.Catalog, logg))
		})
	})

	return r
}
