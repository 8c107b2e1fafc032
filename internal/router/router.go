package router

import (
	"fmt"
	"strings"

	"github.com/teranga-pos/payments/internal/cache"
	"github.com/teranga-pos/payments/internal/config"
	apihandlers "github.com/teranga-pos/payments/internal/http/handlers/api"
	callbackhandlers "github.com/teranga-pos/payments/internal/http/handlers/callbacks"
	"github.com/teranga-pos/payments/internal/logger"
	"github.com/teranga-pos/payments/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter wires middleware and routes.
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	apiHandler := apihandlers.New(c)
	callbackHandler := callbackhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "tpos"
	}
	callbackRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:callback", redisPrefix),
		WindowSeconds: cfg.Security.CallbackRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CallbackRateLimit.MaxRequests,
		Message:       "too many callback requests",
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider callbacks sit outside tenant auth. Verification happens in
	// the worker against the stored provider secret.
	callbacks := r.Group("/callbacks")
	callbacks.Use(RateLimitMiddleware(cache.Client(), callbackRule, KeyByIPAndPath))
	{
		callbacks.POST("/:tenant_id/:provider", callbackHandler.Receive)
	}

	apiV1 := r.Group("/api/v1")
	apiV1.Use(TenantJWTAuthMiddleware(cfg.JWT.SecretKey))
	{
		apiV1.POST("/payments", apiHandler.CreatePayment)
		apiV1.GET("/payments", apiHandler.ListPayments)
		apiV1.GET("/payments/:id", apiHandler.GetPayment)
		apiV1.POST("/payments/:id/check", apiHandler.CheckPayment)
		apiV1.POST("/payments/:id/refund", apiHandler.RefundPayment)

		apiV1.POST("/cash-drawer/open", apiHandler.OpenDrawer)
		apiV1.GET("/cash-drawer/current", apiHandler.CurrentDrawer)
		apiV1.POST("/cash-drawer/close", apiHandler.CloseDrawer)

		apiV1.GET("/reconciliation", apiHandler.ReconciliationReport)
	}

	return r
}
