package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"echolink/internal/core/services"
	handlers "echolink/internal/handlers/http"
	"echolink/internal/infrastructure/middleware"
	"echolink/internal/infrastructure/monitoring"
	"echolink/internal/infrastructure/repositories"
	ws "echolink/internal/infrastructure/signal"
	"echolink/pkg/config"
	"echolink/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/echolink/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	zlog := logger.New(cfg.Logging.Level)
	defer zlog.Sync()
	log := zlog.Sugar()

	if err != nil {
		log.Warnw("config load failed, using defaults", "error", err)
	}

	stores, err := repositories.NewStores(cfg, log)
	if err != nil {
		log.Fatalw("storage init failed", "backend", cfg.Storage.Backend, "error", err)
	}
	if stores.Closer != nil {
		defer stores.Closer()
	}

	collector := monitoring.NewPrometheusCollector()
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	wsServer := ws.NewWebSocketServer(authService, collector, ws.Options{
		PingInterval:      cfg.Signal.PingInterval,
		PongTimeout:       cfg.Signal.PongTimeout,
		ReadTimeout:       cfg.Signal.ReadTimeout,
		WriteTimeout:      cfg.Signal.WriteTimeout,
		MessagesPerSecond: wsMessageRate(cfg),
		MessageBurst:      cfg.RateLimiting.WebSocket.Burst,
		MaxMessageSize:    cfg.RateLimiting.WebSocket.MaxMessageSizeBytes,
	}, log)

	registry := services.NewRegistry(log)
	presence := services.NewPresence(registry, wsServer, collector, log)
	rooms := services.NewRooms(registry, stores.Rooms, wsServer, collector, cfg.Storage.Timeout, log)
	signals := services.NewSignalRouter(registry, rooms, wsServer, collector, log)
	messages := services.NewMessageRelay(registry, rooms, stores.Messages, wsServer, collector, cfg.Storage.Timeout, log)
	wsServer.Bind(registry, presence, rooms, signals, messages)

	health := monitoring.NewHealthChecker()
	if stores.Ping != nil {
		health.AddCheck("storage", stores.Ping, cfg.Storage.Timeout)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	router.GET("/ws", gin.WrapF(wsServer.HandleWebSocket))
	router.GET("/health", func(c *gin.Context) {
		status := health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":      status.Status,
			"timestamp":   status.Timestamp.Unix(),
			"checks":      status.Checks,
			"connections": wsServer.ConnectionCount(),
		})
	})
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	handlers.NewAuthHandler(authService, cfg.Auth.TokenTTL).SetupRoutes(router)
	handlers.NewHistoryHandler(stores.Messages, stores.Rooms, cfg.History.DefaultLimit, cfg.History.MaxLimit).
		SetupRoutes(router, middleware.AuthMiddleware(authService))

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infow("starting echolink signaling server", "address", cfg.Server.Address, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	wsServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server shutdown failed", "error", err)
	}
}

func wsMessageRate(cfg *config.Config) float64 {
	if !cfg.RateLimiting.Enabled {
		return 0
	}
	return cfg.RateLimiting.WebSocket.MessagesPerSecond
}
