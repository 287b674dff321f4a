package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"affiliate-ledger/config"
	"affiliate-ledger/internal/gateway/clients"
	"affiliate-ledger/internal/gateway/handlers"
	"affiliate-ledger/internal/gateway/middleware"
	"affiliate-ledger/internal/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	issuer, err := utils.NewTokenIssuer(cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatalf("Invalid JWT_SECRET: %v", err)
	}

	rateLimit, err := middleware.NewRateLimit(cfg.Gateway.Rate)
	if err != nil {
		log.Fatalf("Invalid GATEWAY_RATE: %v", err)
	}

	grpcClients, err := clients.NewGRPCClientsWithFallback(cfg.Auth.ServiceURL)
	if err != nil {
		log.Printf("Warning: Some gRPC services may be unavailable: %v", err)
	}
	defer grpcClients.Close()

	r := setupRouter(grpcClients, issuer, rateLimit)

	log.Printf("Starting server on %s", cfg.Gateway.Addr)
	if err := r.Run(cfg.Gateway.Addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter(grpcClients *clients.GRPCClients, issuer *utils.TokenIssuer, rateLimit gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(rateLimit)
	r.Use(serviceHealthMiddleware(grpcClients))

	var ledgerHandler *handlers.LedgerHTTPHandler
	if grpcClients.Ledger != nil {
		ledgerHandler = handlers.NewLedgerHTTPHandler(grpcClients.Ledger)
	}
	// route falls back to 503 when the ledger client is missing. Method
	// values on a nil *LedgerHTTPHandler are safe until called.
	route := func(h gin.HandlerFunc) gin.HandlerFunc {
		if ledgerHandler == nil {
			return serviceUnavailableHandler("Ledger service")
		}
		return h
	}

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		public.GET("/leaderboard", route(ledgerHandler.Leaderboard))
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(issuer))
	{
		orders := protected.Group("/orders")
		orders.Use(middleware.RequireRole(utils.RoleOrderSource, utils.RoleAdmin))
		{
			orders.POST("", route(ledgerHandler.SubmitOrder))
		}

		affiliates := protected.Group("/affiliates")
		{
			affiliates.POST("", route(ledgerHandler.Apply))
			affiliates.GET("", route(ledgerHandler.GetAffiliateByCode))
			affiliates.GET("/:id", route(ledgerHandler.GetAffiliate))
			affiliates.GET("/:id/records", route(ledgerHandler.ListRecords))
		}

		admin := protected.Group("/affiliates")
		admin.Use(middleware.RequireRole(utils.RoleAdmin))
		{
			admin.POST("/:id/review", route(ledgerHandler.Review))
			admin.PUT("/:id/parent", route(ledgerHandler.AssignParent))
			admin.PUT("/:id/tier", route(ledgerHandler.RaiseTier))
			admin.GET("/:id/audit", route(ledgerHandler.AuditBalance))
		}
	}

	r.GET("/health", healthCheckHandler(grpcClients))
	r.GET("/health/detailed", detailedHealthCheckHandler(grpcClients))
	return r
}

func serviceUnavailableHandler(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": serviceName + " is currently unavailable",
			"error":   "SERVICE_UNAVAILABLE",
		})
	}
}

func serviceHealthMiddleware(clients *clients.GRPCClients) gin.HandlerFunc {
	return func(c *gin.Context) {
		if clients.Ledger != nil {
			c.Header("X-Ledger-Service", "available")
		} else {
			c.Header("X-Ledger-Service", "unavailable")
		}
		c.Next()
	}
}

func healthCheckHandler(clients *clients.GRPCClients) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		httpStatus := http.StatusOK

		unavailableServices := []string{}
		if clients.Ledger == nil {
			unavailableServices = append(unavailableServices, "ledger")
		}

		if len(unavailableServices) > 0 {
			status = "degraded"
			httpStatus = http.StatusPartialContent
		}

		c.JSON(httpStatus, gin.H{
			"status":               status,
			"message":              "Server is running",
			"unavailable_services": unavailableServices,
			"timestamp":            time.Now(),
		})
	}
}

func detailedHealthCheckHandler(clients *clients.GRPCClients) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		services := map[string]interface{}{
			"ledger": checkServiceHealth(ctx, clients.IsLedgerServiceHealthy()),
		}

		overallStatus := "healthy"
		for _, service := range services {
			if serviceMap, ok := service.(map[string]interface{}); ok {
				if serviceMap["status"] != "healthy" {
					overallStatus = "degraded"
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"overall_status": overallStatus,
			"services":       services,
			"timestamp":      time.Now(),
		})
	}
}

func checkServiceHealth(ctx context.Context, isHealthy bool) map[string]interface{} {
	if !isHealthy {
		return map[string]interface{}{
			"status":  "unavailable",
			"message": "Service client not initialized or connection lost",
		}
	}
	if err := ctx.Err(); err != nil {
		return map[string]interface{}{
			"status":  "unavailable",
			"message": err.Error(),
		}
	}
	return map[string]interface{}{
		"status":  "healthy",
		"message": "Service is responding",
	}
}
