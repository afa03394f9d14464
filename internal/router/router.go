package router

import (
	"log"
	"net/http"

	"github.com/cleanup/dashboard/internal/catalog"
	"github.com/cleanup/dashboard/internal/cleanup"
	"github.com/cleanup/dashboard/internal/config"
	"github.com/cleanup/dashboard/internal/database"
	"github.com/cleanup/dashboard/internal/handler"
	mw "github.com/cleanup/dashboard/internal/middleware"
	"github.com/cleanup/dashboard/internal/service"
	"github.com/cleanup/dashboard/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, store scoping, and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, backend *cleanup.Client, cat *catalog.Cache, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/stores/{store}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Both services share one in-flight guard.
	inflight := service.NewInflight()
	orderService := service.NewOrderService(backend, cat, queries, hub, inflight)
	actionService := service.NewActionService(backend, queries, hub, inflight)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		catalogHandler := handler.NewCatalogHandler(cat)
		r.Route("/catalog", catalogHandler.RegisterRoutes)

		// Store-scoped routes
		r.Route("/stores/{store}", func(r chi.Router) {
			r.Use(mw.RequireStore)

			orderHandler := handler.NewOrderHandler(orderService)
			actionHandler := handler.NewActionHandler(actionService)
			journalHandler := handler.NewJournalHandler(queries)

			r.Route("/orders", func(r chi.Router) {
				orderHandler.RegisterRoutes(r)
				actionHandler.RegisterOrderRoutes(r)
				journalHandler.RegisterOrderRoutes(r)
			})

			// Challans
			actionHandler.RegisterStoreRoutes(r)

			// Reports (manager/admin)
			r.Route("/reports", journalHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
