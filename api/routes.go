package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/bosatsu/aws-twilio-fax/api/handlers"
	"github.com/bosatsu/aws-twilio-fax/api/middleware"
	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, cfg *config.Config, log logger.Logger) {
	if s == nil {
		panic("Services cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	r.GET("/health", handlers.HealthCheck)

	// Provider webhooks, authenticated by the id/key pair in the webhook URL
	faxHandler := handlers.NewFaxHandler(s.Storage, s.EventsService.Publisher, log, cfg.BucketConfig.ReceiveFaxBucket)
	webhookAuth := middleware.WebhookKeyMiddleware(s.ParameterStore, cfg.ParameterConfig.WebhookKeyParamBase)

	fax := r.Group("/fax")
	fax.Use(webhookAuth)
	fax.Use(tracing.TracingEnhancer(ctx, "fax"))
	{
		fax.POST("/check", faxHandler.CheckFax())
		fax.POST("/receive", faxHandler.ReceiveFax())
	}

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-FAX-BRIDGE-API-KEY",
		ValidAPIKey: cfg.AppConfig.APIKey,
	})

	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(tracing.TracingEnhancer(ctx, "v1"))
	{
		api.POST("/upload-links", handlers.CreateUploadLink(s.UploadLinkService))
	}
}
