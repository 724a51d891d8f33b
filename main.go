package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/auth"
	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := observability.SetupTracing(context.Background(), cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	if shutdownTracing != nil {
		defer shutdownTracing(context.Background())
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))
	observability.SetPublisher(publisher)

	audit := telemetry.NewAuditEmitter(publisher, "audit.messaging", "messaging-service", cfg.Environment)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	userRepo := repositories.NewUserRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	directRepo := repositories.NewDirectMessageRepo(database)
	groupMsgRepo := repositories.NewGroupMessageRepo(database)

	hub := ws.NewHub()

	authHandler := handlers.NewAuthHandler(userRepo, issuer, audit)
	userHandler := handlers.NewUserHandler(userRepo)
	groupHandler := handlers.NewGroupHandler(groupRepo, userRepo, audit)
	messageHandler := handlers.NewMessageHandler(directRepo, groupMsgRepo, groupRepo, userRepo, hub, audit)

	groupWS := ws.NewGroupWebSocketHandler(hub, groupRepo, issuer)
	directWS := ws.NewDirectWebSocketHandler(hub, issuer)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("messaging-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(issuer)

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)

	router.GET("/users", authMiddleware, userHandler.ListUsers)

	router.GET("/groups", authMiddleware, groupHandler.ListGroups)
	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)
	router.GET("/groups/:group_id", authMiddleware, groupHandler.GetGroup)

	router.GET("/messages/direct", authMiddleware, messageHandler.ListDirectMessages)
	router.GET("/messages/direct/:user_id", authMiddleware, messageHandler.ListDirectMessagesWith)
	router.GET("/messages/group/:group_id", authMiddleware, messageHandler.ListGroupMessages)
	router.POST("/messages", authMiddleware, messageHandler.SendMessage)

	router.GET("/ws/groups/:group_id", groupWS.Handle)
	router.GET("/ws/direct", directWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	handlers.RegisterDebugRoutes(router, audit, hub, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
