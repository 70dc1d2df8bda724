package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rbhandari/attira-backend/api/controllers"
	"github.com/rbhandari/attira-backend/api/middleware"
	cartsvc "github.com/rbhandari/attira-backend/internal/cart"
	"github.com/rbhandari/attira-backend/internal/catalog"
	checkoutsvc "github.com/rbhandari/attira-backend/internal/checkout"
	couponsvc "github.com/rbhandari/attira-backend/internal/coupons"
	ordersvc "github.com/rbhandari/attira-backend/internal/orders"
	returnsvc "github.com/rbhandari/attira-backend/internal/returns"
	"github.com/rbhandari/attira-backend/internal/shipping"
	webhooksvc "github.com/rbhandari/attira-backend/internal/webhooks"
	"github.com/rbhandari/attira-backend/pkg/config"
	"github.com/rbhandari/attira-backend/pkg/db"
	"github.com/rbhandari/attira-backend/pkg/enums"
	"github.com/rbhandari/attira-backend/pkg/logger"
	"github.com/rbhandari/attira-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      *redis.Client
	Catalog    catalog.Service
	Cart       cartsvc.Service
	Coupons    couponsvc.Service
	Checkout   checkoutsvc.Service
	Orders     ordersvc.Service
	Returns    returnsvc.Service
	Webhooks   webhooksvc.Service
	Dispatcher *shipping.Dispatcher
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.RateLimit(p.Redis, cfg.Checkout.WebhookRateLimit, cfg.Checkout.WebhookRateWindow, logg))
		r.Post("/payment", controllers.PaymentWebhook(p.Webhooks, logg))
		r.Post("/shipping", controllers.ShippingWebhook(p.Webhooks, logg))
	})

	// public storefront catalog
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(p.Catalog, logg))
		r.Get("/{productRef}", controllers.GetProduct(p.Catalog, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(p.Cart, logg))
			r.Post("/items", controllers.AddCartItem(p.Cart, logg))
			r.Patch("/items/{itemID}", controllers.UpdateCartItem(p.Cart, logg))
			r.Delete("/items/{itemID}", controllers.RemoveCartItem(p.Cart, logg))
		})

		r.Post("/coupons/validate", controllers.ValidateCoupon(p.Coupons, logg))
		r.Post("/checkout", controllers.Checkout(p.Checkout, p.Dispatcher, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(p.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(p.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(p.Orders, logg))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Get("/", controllers.ListReturns(p.Returns, logg))
			r.Post("/", controllers.CreateReturn(p.Returns, logg))
			r.Get("/{returnID}", controllers.GetReturn(p.Returns, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{orderID}", controllers.AdminGetOrder(p.Orders, logg))
			r.Post("/{orderID}/status", controllers.AdminTransitionOrder(p.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(p.Orders, logg))
		})
		r.Post("/returns/{returnID}/process", controllers.AdminProcessReturn(p.Returns, logg))
	})

	return r
}
