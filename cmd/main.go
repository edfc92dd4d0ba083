package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"metatags-backend/internal/config"
	"metatags-backend/internal/handler"
	"metatags-backend/internal/model"
	"metatags-backend/internal/service"
	apperrors "metatags-backend/pkg/errors"
	"metatags-backend/pkg/logger"
	"metatags-backend/pkg/tracer"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// 缺少上游凭据时直接退出，不接收任何请求
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, apperrors.ErrConfiguration) {
			logger.Fatalf("Missing or invalid configuration: %v", err)
		}
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
		Enabled:     cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatalf("Failed to init tracer: %v", err)
	}

	chatModel, err := model.NewChatModel(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create chat model: %v", err)
	}

	generateService, err := service.NewGenerateService(chatModel, cfg.Model.Provider, cfg.ModelName(), cfg.Generation)
	if err != nil {
		logger.Fatalf("Failed to init generate service: %v", err)
	}
	generateHandler := handler.NewGenerateHandler(generateService)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(cfg, generateHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("服务器启动在端口 %d (provider=%s, model=%s)", cfg.Server.Port, cfg.Model.Provider, cfg.ModelName())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务器正在关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Errorf("tracer shutdown failed: %v", err)
	}
	logger.Info("服务器已关闭")
}
