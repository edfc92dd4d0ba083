package handler

import (
	"time"

	"metatags-backend/internal/config"
	"metatags-backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter 组装路由与中间件
func NewRouter(cfg *config.Config, generateHandler *GenerateHandler) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Tracing.Enabled {
		router.Use(middleware.Trace(cfg.Tracing.ServiceName))
		router.Use(middleware.TraceContext())
	}
	router.Use(middleware.AccessLog())
	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics())
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	router.GET("/health", Health(cfg.Model.Provider, cfg.ModelName()))
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api")
	{
		api.POST("/generate", generateHandler.Generate)
	}

	return router
}
