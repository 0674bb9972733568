package app

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octane/cashier/internal/auth"
	"github.com/octane/cashier/internal/handler"
	"github.com/octane/cashier/internal/provider"
	"github.com/octane/cashier/internal/repository"
	"github.com/octane/cashier/internal/service"
	"github.com/octane/cashier/internal/store"
)

// RouterDeps holds all dependencies needed by NewRouter. Pool, OutboxRepo
// and Oracle may be nil: the memory backend runs without a database, and a
// terminal without a draw system runs without an oracle.
type RouterDeps struct {
	Pool         *pgxpool.Pool
	Store        store.TicketStore
	Operators    service.OperatorDirectory
	OutboxRepo   repository.OutboxRepository
	Oracle       provider.DrawOracle
	JWTMgr       *auth.JWTManager
	Logger       *slog.Logger
	StoreBackend string
	CORSOrigins  string
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	jwtMgr := deps.JWTMgr
	logger := deps.Logger

	// Services
	authSvc := service.NewAuthService(deps.Operators, deps.Pool, deps.OutboxRepo, jwtMgr)
	ticketSvc := service.NewTicketService(deps.Store, deps.Oracle, logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	ticketHandler := handler.NewTicketHandler(ticketSvc)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS(deps.CORSOrigins))
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(deps.Pool, deps.StoreBackend))

	// Auth routes (no auth)
	r.Post("/auth/login", authHandler.Login)

	// Cashier-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticateCashier(jwtMgr))

		r.Post("/operators", authHandler.CreateOperator)

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", ticketHandler.Create)
			r.Get("/lookup", ticketHandler.Lookup)
			r.Get("/{id}", ticketHandler.Get)
			r.Get("/{id}/entries", ticketHandler.Entries)
			r.Get("/{id}/payout-preview", ticketHandler.PreviewPayout)
			r.Post("/{id}/payout", ticketHandler.Payout)
		})
	})

	// Gameplay backend routes (service tokens)
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticateBackend(jwtMgr))

		r.Post("/tickets/{id}/gameplay", ticketHandler.Gameplay)
	})

	return r
}
