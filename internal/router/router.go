package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kopisenja-pos/api/internal/config"
	"github.com/kopisenja-pos/api/internal/database"
	"github.com/kopisenja-pos/api/internal/enum"
	"github.com/kopisenja-pos/api/internal/handler"
	mw "github.com/kopisenja-pos/api/internal/middleware"
	"github.com/kopisenja-pos/api/internal/service"
	"github.com/kopisenja-pos/api/internal/ws"
)

// New builds the application router with all handlers wired up.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL, "http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services wrap every multi-statement operation in a transaction; the
	// store factory lets them run their queries against that transaction.
	orderSvc := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	kitchenSvc := service.NewKitchenService(pool, func(db database.DBTX) service.KitchenStore {
		return database.New(db)
	})
	paymentSvc := service.NewPaymentService(pool, func(db database.DBTX) service.PaymentStore {
		return database.New(db)
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	ordersHandler := handler.NewOrdersHandler(orderSvc, queries, hub)
	kitchenHandler := handler.NewKitchenHandler(kitchenSvc, queries, hub)
	paymentsHandler := handler.NewPaymentsHandler(paymentSvc, queries, hub)
	tablesHandler := handler.NewTablesHandler(queries, cfg.BaseURL)
	menuHandler := handler.NewMenuHandler(queries)
	staffHandler := handler.NewStaffHandler(queries)
	reportsHandler := handler.NewReportsHandler(queries)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	// Public: customers browse the menu and submit orders from the QR page.
	authHandler.RegisterRoutes(r)
	menuHandler.RegisterPublicRoutes(r)
	ordersHandler.RegisterPublicRoutes(r)

	// WebSocket endpoint for live order/kitchen updates.
	r.Get("/ws/{channel}", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, req)
	})

	// Staff endpoints.
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		ordersHandler.RegisterRoutes(r)
		kitchenHandler.RegisterRoutes(r)
		paymentsHandler.RegisterRoutes(r)
		tablesHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin, enum.RoleManager))

			menuHandler.RegisterRoutes(r)
			tablesHandler.RegisterManagerRoutes(r)
			paymentsHandler.RegisterManagerRoutes(r)
			reportsHandler.RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin))

			staffHandler.RegisterRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
