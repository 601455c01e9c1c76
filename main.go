package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/multierr"

	"messaging-service/internal/auth"
	"messaging-service/internal/config"
	"messaging-service/internal/db"
	grpcclient "messaging-service/internal/grpc"
	"messaging-service/internal/handlers"
	"messaging-service/internal/identity"
	"messaging-service/internal/logging"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/realtime"
	"messaging-service/internal/repositories"
	"messaging-service/internal/services"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

const serviceName = "messaging-service"

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat, serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	shutdownTracing, err := telemetry.InitTracing(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}

	database, err := db.Connect(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}

	var directory identity.Directory = identity.NewSQLDirectory(database)
	var closeIdentity func() error
	if cfg.IdentityGRPCAddr != "" {
		userClient, conn, err := grpcclient.DialUserClient(cfg.IdentityGRPCAddr)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.IdentityGRPCAddr).Msg("failed to connect to identity grpc")
		}
		directory = userClient
		closeIdentity = conn.Close
	}

	var broker realtime.Broker = realtime.NewMemoryBroker()
	if cfg.NATSURL != "" {
		natsBroker, err := realtime.NewNATSBroker(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to nats")
		}
		broker = natsBroker
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Environment)

	conversationRepo := repositories.NewConversationRepo(database)
	participantRepo := repositories.NewParticipantRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	contactRepo := repositories.NewContactRepo(database)
	keyRepo := repositories.NewKeyRepo(database)

	retry := services.DefaultRetryPolicy()
	retry.MaxRetries = cfg.ReadRetryMax

	conversationService := services.NewConversationService(conversationRepo, participantRepo, messageRepo, directory, broker, audit, retry)
	contactService := services.NewContactService(contactRepo, directory, audit, retry)
	keyService := services.NewKeyService(keyRepo)

	hub := ws.NewHub(broker)
	feeds := ws.NewFeedHandler(hub, participantRepo)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handlers.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	validator := auth.NewValidator(cfg.JWTSecret, cfg.JWTIssuer)
	api := router.Group("/", middleware.AuthMiddleware(validator))
	handlers.Register(api, handlers.NewConversationHandler(conversationService), handlers.NewContactHandler(contactService, keyService))
	api.GET("/ws/conversations", feeds.Conversations)
	api.GET("/ws/conversations/:conversation_id/messages", feeds.Messages)
	handlers.RegisterDebugRoutes(api, audit, publisher, cfg.DebugRoutes)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Info().Str("port", cfg.Port).Str("publisher", rabbitmq.PublisherMode(publisher)).Msg("messaging service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	hub.Close()
	err = multierr.Combine(err, broker.Close(), publisher.Close(), database.Close(), shutdownTracing(shutdownCtx))
	if closeIdentity != nil {
		err = multierr.Append(err, closeIdentity())
	}
	if err != nil {
		log.Error().Err(err).Msg("unclean shutdown")
		os.Exit(1)
	}
}
