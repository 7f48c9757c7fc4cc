package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"social-chat-service/internal/config"
	"social-chat-service/internal/counters"
	"social-chat-service/internal/db"
	"social-chat-service/internal/handlers"
	"social-chat-service/internal/middleware"
	"social-chat-service/internal/notifications"
	"social-chat-service/internal/observability"
	"social-chat-service/internal/rabbitmq"
	"social-chat-service/internal/repositories"
	"social-chat-service/internal/telemetry"
	"social-chat-service/internal/ws"
)

const serviceName = "social-chat-service"

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := telemetry.InitTracing(context.Background(), serviceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s reason=%q",
		rabbitmq.PublisherMode(auditPublisher), rabbitmq.PublisherNoopReason(auditPublisher))
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, "audit.social-chat", serviceName, cfg.Environment)

	if eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		log.Printf("event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	ledger := counters.NewLedger(database)

	followRepo := repositories.NewFollowRepo(database, ledger)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database, followRepo)
	profileRepo := repositories.NewProfileRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)
	postRepo := repositories.NewPostRepo(database, ledger)
	commentRepo := repositories.NewCommentRepo(database, ledger)

	notifier := notifications.NewDispatcher(notificationRepo, conversationRepo)

	hub := ws.NewHub()

	chatHandler := handlers.NewChatHandler(conversationRepo, messageRepo, followRepo, profileRepo, notifier, hub)
	followHandler := handlers.NewFollowHandler(followRepo, notifier)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	socialHandler := handlers.NewSocialHandler(postRepo, commentRepo, notifier, ledger)
	profileHandler := handlers.NewProfileHandler(profileRepo)

	sessionHandler := ws.NewSessionHandler(hub, conversationRepo, messageRepo, followRepo, profileRepo, notifier, cfg.JWTSecret)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	router.GET("/conversations", authMiddleware, chatHandler.ListConversations)
	router.POST("/conversations/start", authMiddleware, chatHandler.StartConversation)
	router.GET("/conversations/:conversation_id/messages", authMiddleware, chatHandler.GetMessages)
	router.POST("/conversations/:conversation_id/messages", authMiddleware, chatHandler.PostMessage)
	router.GET("/conversations/:conversation_id/unread-count", authMiddleware, chatHandler.UnreadCount)
	router.PATCH("/conversations/:conversation_id/settings", authMiddleware, chatHandler.UpdateMemberSettings)
	router.POST("/messages/:message_id/read", authMiddleware, chatHandler.MarkMessageRead)

	router.POST("/users/:user_id/follow", authMiddleware, followHandler.Follow)
	router.DELETE("/users/:user_id/follow", authMiddleware, followHandler.Unfollow)
	router.GET("/users/:user_id/relationship", authMiddleware, followHandler.Relationship)

	router.GET("/users/:user_id/profile", authMiddleware, profileHandler.GetProfile)
	router.PUT("/profile", authMiddleware, profileHandler.UpsertProfile)

	router.GET("/notifications", authMiddleware, notificationHandler.List)
	router.GET("/notifications/unread-count", authMiddleware, notificationHandler.UnreadCount)
	router.POST("/notifications/read-all", authMiddleware, notificationHandler.MarkAllRead)
	router.POST("/notifications/:notification_id/read", authMiddleware, notificationHandler.MarkRead)
	router.GET("/notification-settings", authMiddleware, notificationHandler.GetSettings)
	router.PUT("/notification-settings", authMiddleware, notificationHandler.UpdateSettings)

	router.POST("/posts", authMiddleware, socialHandler.CreatePost)
	router.DELETE("/posts/:post_id", authMiddleware, socialHandler.DeletePost)
	router.POST("/posts/:post_id/like", authMiddleware, socialHandler.LikePost)
	router.DELETE("/posts/:post_id/like", authMiddleware, socialHandler.UnlikePost)
	router.POST("/posts/:post_id/comments", authMiddleware, socialHandler.CreateComment)
	router.DELETE("/comments/:comment_id", authMiddleware, socialHandler.DeleteComment)
	router.POST("/comments/:comment_id/like", authMiddleware, socialHandler.LikeComment)
	router.DELETE("/comments/:comment_id/like", authMiddleware, socialHandler.UnlikeComment)

	router.POST("/internal/reconcile-counters", authMiddleware, socialHandler.ReconcileCounters)

	router.GET("/ws/conversations/:conversation_id", sessionHandler.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
