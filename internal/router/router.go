package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nirvaan-oms/api/internal/config"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/enum"
	"github.com/nirvaan-oms/api/internal/handler"
	"github.com/nirvaan-oms/api/internal/logger"
	mw "github.com/nirvaan-oms/api/internal/middleware"
	"github.com/nirvaan-oms/api/internal/service"
	"github.com/nirvaan-oms/api/internal/settings"
	"github.com/nirvaan-oms/api/internal/ws"
)

// Deps are the long-lived components the routes are built from.
type Deps struct {
	Queries  *database.Queries
	Pool     *pgxpool.Pool
	Hub      *ws.Hub
	Settings *settings.Store
	Limiter  *mw.IPRateLimiter
}

// New creates a Chi router with all application routes mounted under /api.
// Applies authentication, role gating, and per-IP rate limiting as needed.
func New(cfg *config.Config, d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	queries := d.Queries

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(d.Pool, newOrderStore, queries, d.Settings, d.Hub)
	statusService := service.NewStatusService(queries, d.Hub)

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	productHandler := handler.NewProductHandler(queries)
	orderHandler := handler.NewOrderHandler(orderService, statusService, queries, d.Settings)
	courierHandler := handler.NewCourierHandler(queries, statusService)
	inquiryHandler := handler.NewInquiryHandler(queries)
	settingsHandler := handler.NewSettingsHandler(d.Settings)
	reportsHandler := handler.NewReportsHandler(queries, d.Settings)
	userHandler := handler.NewUserHandler(queries)
	customerHandler := handler.NewCustomerHandler(queries)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
		})

		// WebSocket route (handles auth internally via query param)
		r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWS(d.Hub, cfg.JWTSecret, w, r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))

			// Public routes
			authHandler.RegisterRoutes(r)
			productHandler.RegisterRoutes(r)
			settingsHandler.RegisterRoutes(r)

			// Public form submissions are rate limited per IP.
			r.Group(func(r chi.Router) {
				if d.Limiter != nil {
					r.Use(d.Limiter.Middleware)
				}
				orderHandler.RegisterRoutes(r)
				inquiryHandler.RegisterRoutes(r)
			})

			// Protected routes (require authentication)
			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret))
				authHandler.RegisterProtectedRoutes(r)

				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole(enum.UserRoleAdmin))
					productHandler.RegisterAdminRoutes(r)
					orderHandler.RegisterAdminRoutes(r)
					inquiryHandler.RegisterAdminRoutes(r)
					settingsHandler.RegisterAdminRoutes(r)
					reportsHandler.RegisterRoutes(r)
					userHandler.RegisterAdminRoutes(r)
					customerHandler.RegisterAdminRoutes(r)
				})

				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole(enum.UserRoleCourier, enum.UserRoleAdmin))
					courierHandler.RegisterRoutes(r)
				})
			})
		})
	})

	logger.Info().Msg("router initialized with all handlers")
	return r
}
