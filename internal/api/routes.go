package api

import (
	"fmt"

	"auth-failover/internal/api/handlers"
	"auth-failover/internal/api/interfaces"
	"auth-failover/internal/api/middlewares"
	"auth-failover/pkg/config"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes with proper middleware
func SetupRoutes(router *gin.Engine, services interfaces.Services) error {
	cfg := services.GetConfig()
	log := services.GetLogger()

	generateNets, err := config.ParseNetworks(cfg.API.GenerateAllowedCIDRs)
	if err != nil {
		return fmt.Errorf("generate allowed networks: %w", err)
	}

	// Global middleware
	router.Use(middlewares.RequestLogging(log))
	router.Use(middlewares.Recovery(log))
	router.Use(middlewares.Security())
	router.Use(middlewares.CORS(cfg.API.CORS))

	// Health check stays outside the rate limit so probes are never throttled
	router.GET("/health", handlers.HealthCheck())

	api := router.Group("/api")
	api.Use(middlewares.RateLimit(cfg.API.RateLimit))
	{
		api.POST("/login", handlers.Login(services))
		api.POST("/verify-settings", handlers.VerifySettings(services))
		api.POST("/create-account", handlers.CreateAccount(services))
		api.POST("/list-accounts", handlers.ListAccounts(services))
		api.POST("/auth-events", handlers.ListAuthEvents(services))
		api.POST("/verify", handlers.VerifyToken(services))
		api.POST("/generate", middlewares.TrustedNetworks(generateNets, log), handlers.GenerateToken(services))
	}

	return nil
}
