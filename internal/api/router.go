package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/middleware"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/config"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
)

// NewRouter creates and configures the HTTP router.
// Everything except the system namespace and login requires a session.
func NewRouter(
	systemService *service.SystemService,
	transactionService *service.TransactionService,
	holdingsService *service.HoldingsService,
	authService *service.AuthService,
	ibkrService *service.IbkrService,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// Forwarded headers are only honoured from trusted proxies.
	loginLimiter := custommiddleware.NewRateLimiter(cfg.Session.LoginRatePerMinute, cfg.Server.TrustedProxies...)

	systemHandler := handlers.NewSystemHandler(systemService)
	authHandler := handlers.NewAuthHandler(authService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	holdingsHandler := handlers.NewHoldingsHandler(holdingsService)
	ibkrHandler := handlers.NewIbkrHandler(ibkrService)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.With(loginLimiter.Handler).Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireSession(authService))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
			})

			r.Route("/transaction", func(r chi.Router) {
				r.Get("/", transactionHandler.AllTransactions)
				r.Post("/", transactionHandler.CreateTransaction)

				r.Route("/{uuid}", func(r chi.Router) {
					r.Use(custommiddleware.ValidateUUIDMiddleware)
					r.Get("/", transactionHandler.GetTransaction)
					r.Put("/", transactionHandler.UpdateTransaction)
					r.Delete("/", transactionHandler.DeleteTransaction)
				})
			})

			r.Route("/holdings", func(r chi.Router) {
				r.Get("/", holdingsHandler.Holdings)
				r.Get("/realized", holdingsHandler.Realized)
				r.Get("/summary", holdingsHandler.Summary)
			})

			r.Get("/quote/{symbol}", holdingsHandler.Quote)

			r.Route("/ibkr", func(r chi.Router) {
				r.Post("/import", ibkrHandler.Import)
				r.Post("/fetch", ibkrHandler.Fetch)
			})
		})
	})

	return r
}
