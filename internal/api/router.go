package api

import (
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/api/handlers"
	utils "github.com/AsdfAlex-learning/fnOS-Overseer/internal/api/utils"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/auth"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Deps are the collaborators the dashboard API exposes.
type Deps struct {
	DB      *gorm.DB
	Auth    *auth.Service
	Audit   *handlers.AuditService
	Monitor *handlers.MonitorService
	Rollups handlers.RollupController
	Uploads handlers.UploadSink
}

// Router sets up the main API router with all routes
func Router(deps Deps) *mux.Router {
	router := mux.NewRouter()

	// Add security and rate limiting middleware
	router.Use(utils.InputValidationMiddleware)

	// Rate limit public routes at 10 requests per minute with burst of 20
	publicRateLimiter := utils.RateLimitMiddleware(rate.Limit(10), 20, 1)
	router.Use(publicRateLimiter)

	userService := handlers.NewUserService(deps.DB)

	// Public routes (no authentication required)
	public := router.PathPrefix("/api").Subrouter()
	public.HandleFunc("/health", handlers.HealthHandler).Methods("GET")
	public.HandleFunc("/login", handlers.LoginHandler(userService, deps.Auth)).Methods("POST")

	// Refresh validates the presented token itself, so an almost-expired
	// session can renew without the JWT middleware rejecting it first.
	public.HandleFunc("/auth/refresh", handlers.RefreshTokenHandler(deps.Auth)).Methods("POST")

	// The upload webhook is called by the NAS firmware on the same host;
	// it carries no user session, so it stays outside the JWT middleware.
	public.HandleFunc("/webhook/nas/upload", handlers.NasUploadWebhookHandler(deps.Uploads)).Methods("POST")

	// Protected routes (authentication required)
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(deps.Auth.AuthMiddleware)

	// Add a higher rate limit for authenticated users (20 requests per minute with burst of 40)
	protected.Use(utils.RateLimitMiddleware(rate.Limit(20), 40, 1))

	// Audit ledger routes
	protected.HandleFunc("/audit/today", handlers.GetTodayAuditHandler(deps.Audit)).Methods("GET")
	protected.HandleFunc("/audit/dates", handlers.GetAuditDatesHandler(deps.Audit)).Methods("GET")
	protected.HandleFunc("/audit/{date}", handlers.GetAuditByDateHandler(deps.Audit)).Methods("GET")

	// Rollup routes
	protected.HandleFunc("/rollups", handlers.GetRollupsHandler(deps.Rollups)).Methods("GET")
	protected.HandleFunc("/rollups/{date}/trigger", handlers.TriggerRollupHandler(deps.Rollups)).Methods("POST")

	// Live hardware routes
	protected.HandleFunc("/monitor/cpu", handlers.GetCPUHandler(deps.Monitor)).Methods("GET")
	protected.HandleFunc("/monitor/memory", handlers.GetMemoryHandler(deps.Monitor)).Methods("GET")
	protected.HandleFunc("/monitor/storage", handlers.GetStorageHandler(deps.Monitor)).Methods("GET")
	protected.HandleFunc("/monitor/power", handlers.GetPowerHandler(deps.Monitor)).Methods("GET")

	// User-related routes; only admins may create accounts
	protected.Handle("/users", deps.Auth.RequireRoleMiddleware("admin", handlers.CreateUserHandler(userService, deps.Auth))).Methods("POST")
	protected.HandleFunc("/users/profile", handlers.GetProfileHandler(userService)).Methods("GET")
	protected.HandleFunc("/users/change-password", handlers.ChangePasswordHandler(userService, deps.Auth)).Methods("POST")

	// Dashboard statistics
	protected.HandleFunc("/dashboard/stats", handlers.GetDashboardStatsHandler(deps.Audit, deps.Rollups)).Methods("GET")

	return router
}
