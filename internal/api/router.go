package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/bistiadi/portfolio/internal/auth"
	"github.com/bistiadi/portfolio/internal/auth/providers"
	"github.com/bistiadi/portfolio/internal/authz"
	"github.com/bistiadi/portfolio/internal/handlers"
	"github.com/bistiadi/portfolio/internal/middleware"
	"github.com/bistiadi/portfolio/internal/models"
	"github.com/bistiadi/portfolio/internal/services"
	"github.com/bistiadi/portfolio/internal/storage"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, sessions *iauth.SessionService, photos storage.PhotoStore) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if photos == nil {
		return nil, fmt.Errorf("photo store must be provided")
	}

	predicate, err := authz.NewPredicate(db)
	if err != nil {
		return nil, err
	}
	userSvc, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	profileSvc, err := services.NewProfileService(db, predicate)
	if err != nil {
		return nil, err
	}
	expertiseSvc, err := services.NewExpertiseService(db)
	if err != nil {
		return nil, err
	}
	localProvider, err := providers.NewLocalProvider(db, providers.LocalConfig{})
	if err != nil {
		return nil, err
	}

	authHandler := handlers.NewAuthHandler(userSvc, auditSvc, localProvider, sessions)
	profileHandler := handlers.NewProfileHandler(profileSvc, photos)
	portfolioHandler := handlers.NewPortfolioHandler(profileSvc, expertiseSvc)
	expertiseHandler := handlers.NewExpertiseHandler(expertiseSvc)
	auditHandler := handlers.NewAuditHandler(auditSvc)
	userHandler := handlers.NewUserHandler(userSvc)

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Health and metrics endpoints (public)
	r.GET("/health", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public portfolio views
	portfolio := r.Group("/api/portfolio")
	{
		portfolio.GET("/profiles", portfolioHandler.ListProfiles)
		portfolio.GET("/expertise", portfolioHandler.ListExpertise)
	}

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	requireAuth := middleware.Auth(jwt)
	loadUser := middleware.LoadUser(userSvc)

	api := r.Group("/api")
	api.Use(requireAuth, loadUser)

	// Authenticated auth routes
	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)

	// The caller's own profile, created on first visit
	api.GET("/profile", profileHandler.GetOwn)

	// Profile administration: visibility is enforced by the authorization
	// predicate inside the handlers, so staff see only what they own.
	profiles := api.Group("/profiles")
	profiles.Use(middleware.RequireStaff())
	{
		profiles.GET("", profileHandler.ListVisible)
		profiles.GET("/:id", profileHandler.Get)
		profiles.PUT("/:id", middleware.RequirePermission(predicate, models.PermissionChangeProfile), profileHandler.Update)
		profiles.GET("/:id/photo", profileHandler.DownloadPhoto)
		profiles.POST("/:id/photo", middleware.RequirePermission(predicate, models.PermissionChangeProfile), profileHandler.UploadPhoto)
	}

	// Expertise catalog administration
	expertise := api.Group("/expertise")
	expertise.Use(middleware.RequireStaff())
	{
		expertise.GET("", expertiseHandler.List)
		expertise.GET("/:id", expertiseHandler.Get)
		expertise.POST("", expertiseHandler.Create)
		expertise.PUT("/:id", expertiseHandler.Update)
		expertise.DELETE("/:id", expertiseHandler.Delete)
	}

	// User administration and the audit log are superuser-only
	users := api.Group("/users")
	users.Use(middleware.RequireSuperuser())
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", userHandler.Create)
	}

	api.GET("/audit", middleware.RequireSuperuser(), auditHandler.List)
	api.GET("/audit/latest", middleware.RequireSuperuser(), auditHandler.Latest)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
