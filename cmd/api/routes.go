package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/loyaltyhub/loyalty-api/internal/domain/customer"
	"github.com/loyaltyhub/loyalty-api/internal/domain/ledger"
	"github.com/loyaltyhub/loyalty-api/internal/domain/restaurant"
	"github.com/loyaltyhub/loyalty-api/internal/domain/statement"
	"github.com/loyaltyhub/loyalty-api/internal/domain/voucher"
	"github.com/loyaltyhub/loyalty-api/internal/middleware"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/apikey"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/jwt"
	pkgresponse "github.com/loyaltyhub/loyalty-api/internal/pkg/response"
)

type handlers struct {
	ledger     *ledger.Handler
	restaurant *restaurant.Handler
	customer   *customer.Handler
	voucher    *voucher.Handler
	statement  *statement.Handler
}

func newRouter(h handlers, jwtService *jwt.Service, verifier *apikey.Verifier, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(allowedOrigins))
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	authMiddleware := middleware.Auth(jwtService)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Route("/restaurants/{restaurantId}/customers/{customerId}", func(r chi.Router) {
				r.Use(middleware.RequirePairAccess)
				r.Get("/points", h.ledger.Balance)
				r.Get("/credit-points-transactions", h.ledger.List)
				r.Post("/spend", h.ledger.Spend)
				r.Mount("/vouchers", h.voucher.Routes())
			})
			r.Get("/vouchers/{code}", h.voucher.Get)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.APIKey(verifier))

			r.Post("/credit-points-transactions", h.ledger.RecordEarn)
			r.Get("/credit-points-transactions/{id}", h.ledger.GetByID)
			r.Get("/credit-points-transactions/receipt/{receiptId}", h.ledger.GetByReceipt)

			r.Post("/customers", h.customer.Create)
			r.Route("/restaurants/{restaurantId}", func(r chi.Router) {
				r.Get("/", h.restaurant.Get)
				r.Put("/", h.restaurant.Put)
				r.Patch("/", h.restaurant.Patch)

				r.Route("/customers/{customerId}", func(r chi.Router) {
					r.Get("/", h.customer.Get)
					r.Put("/", h.customer.Update)
					r.Post("/expire", h.ledger.Expire)
					r.Post("/statements", h.statement.Export)
				})
			})
			r.Post("/vouchers/{code}/use", h.voucher.Use)
		})
	})

	return r
}
