package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chatroom-service/internal/auth"
	"chatroom-service/internal/chat"
	"chatroom-service/internal/config"
	"chatroom-service/internal/db"
	"chatroom-service/internal/directory"
	"chatroom-service/internal/handlers"
	"chatroom-service/internal/health"
	"chatroom-service/internal/middleware"
	"chatroom-service/internal/observability"
	"chatroom-service/internal/rabbitmq"
	"chatroom-service/internal/repositories"
	"chatroom-service/internal/telemetry"
	"chatroom-service/internal/ws"
)

func main() {
	if err := run(); err != nil {
		slog.Error("chat service stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})).
		With("service", cfg.ServiceName, "env", cfg.Environment)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment, log)
	if err != nil {
		return err
	}

	database, err := db.Connect(ctx, db.Options{DSN: cfg.DBDSN, MaxOpenConns: cfg.DBMaxOpen})
	if err != nil {
		return err
	}
	defer database.Close()
	if cfg.DBApply {
		if err := db.ApplySchema(ctx, database, log); err != nil {
			return err
		}
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Info("event publisher ready", "mode", rabbitmq.PublisherMode(publisher), "noop_reason", rabbitmq.PublisherNoopReason(publisher))
	audit := telemetry.NewAuditEmitter(publisher, "audit.chat", cfg.ServiceName, cfg.Environment, log)

	var presence directory.Presence = directory.NoopPresence{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, presence may lag", "addr", cfg.RedisAddr, "error", err)
		}
		presence = directory.NewRedisPresence(rdb, cfg.PresenceTTL)
	}
	users := directory.New(directory.NewUserRepo(database), presence, log)

	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	guard := chat.NewGuard(conversationRepo)
	resolver := chat.NewResolver(conversationRepo, guard, users, cfg.PublicRoom, log)
	service := chat.NewService(guard, conversationRepo, messageRepo, users, users, log)
	hub := ws.NewHub(log)
	coordinator := chat.NewCoordinator(service, hub, publisher, log)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", ws.NewHandler(hub, coordinator, verifier, cfg.WSSendBuffer, log).Handle)

	chatRoutes := router.Group("/chat", middleware.AuthMiddleware(verifier))
	handlers.NewChatHandler(resolver, service, coordinator, audit).RegisterRoutes(chatRoutes)
	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	checker := health.NewChecker(database, 15*time.Second, log)
	grpcServer := checker.NewGRPCServer()
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	go checker.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("chat service started", "http_port", cfg.Port, "grpc_addr", cfg.GRPCAddr)

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown", "error", err)
	}
	return nil
}
