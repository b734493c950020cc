package bootstrap

import (
	"context"
	"log"

	"roleplay-agent-be/internal/checkpoint"
	"roleplay-agent-be/internal/config"
	"roleplay-agent-be/internal/controller"
	"roleplay-agent-be/internal/handler"
	"roleplay-agent-be/internal/pkg/logger"
	"roleplay-agent-be/internal/repository/implementation"
	"roleplay-agent-be/internal/repository/memory"
	"roleplay-agent-be/internal/repository/unitofwork"
	"roleplay-agent-be/internal/service"
	"roleplay-agent-be/internal/websocket"
	"roleplay-agent-be/pkg/agent"
	"roleplay-agent-be/pkg/embedding"
	"roleplay-agent-be/pkg/llm/factory"
	"roleplay-agent-be/pkg/retrieval"

	pktNats "roleplay-agent-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController    controller.IChatController
	PersonaController controller.IPersonaController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Initialize In-Memory Session Storage
	sessionRepo := memory.NewSessionRepository()

	// 4. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 5. Pipeline
	checkpointStore := checkpoint.NewStore(uowFactory, sysLogger)
	searcher := implementation.NewPassageSearcher(db)
	retriever := retrieval.NewClient(searcher, sysLogger)
	executor := agent.NewExecutor(
		checkpointStore,
		embeddingProvider,
		retriever,
		llmProvider,
		agent.Config{
			TopK:              cfg.Turn.TopK,
			GenerationTimeout: cfg.Turn.GenerationTimeout,
		},
		sysLogger,
	)

	// 6. Services
	publisherService := service.NewPublisherService(cfg.Keys.PassageTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.PassageTopic,
		uowFactory,
		embeddingProvider,
	)

	turnService := service.NewTurnService(uowFactory, executor, sessionRepo, natsPub, sysLogger)
	personaService := service.NewPersonaService(uowFactory, publisherService, sysLogger)

	notifService := service.NewNotificationService(natsSub, wsHub, wsLogger)
	if natsSub != nil {
		go notifService.Start()
	}

	notifHandler := handler.NewNotificationHandler(wsHub, wsLogger)

	// 7. Controllers
	return &Container{
		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,
		ChatController:      controller.NewChatController(turnService, sysLogger),
		PersonaController:   controller.NewPersonaController(personaService),

		ConsumerService: consumerService,
	}
}
