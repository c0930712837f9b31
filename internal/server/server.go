package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anoa.com/polychat/internal/ai"
	"anoa.com/polychat/internal/ai/providers"
	"anoa.com/polychat/internal/config"
	"anoa.com/polychat/internal/logging"
	"anoa.com/polychat/internal/middleware"
	"anoa.com/polychat/internal/realtime"
	"anoa.com/polychat/internal/scheduler"
	"anoa.com/polychat/pkg/storage"

	channelService "anoa.com/polychat/internal/modules/channel/service"

	mailboxRepo "anoa.com/polychat/internal/modules/mailbox/repository"
	mailboxService "anoa.com/polychat/internal/modules/mailbox/service"

	messageHttp "anoa.com/polychat/internal/modules/message/delivery/http"
	messageRepo "anoa.com/polychat/internal/modules/message/repository"
	messageService "anoa.com/polychat/internal/modules/message/service"

	presenceService "anoa.com/polychat/internal/modules/presence/service"

	searchService "anoa.com/polychat/internal/modules/search/service"

	sessionHttp "anoa.com/polychat/internal/modules/session/delivery/http"
	sessionService "anoa.com/polychat/internal/modules/session/service"

	userHttp "anoa.com/polychat/internal/modules/user/delivery/http"
	userRepo "anoa.com/polychat/internal/modules/user/repository"
	userService "anoa.com/polychat/internal/modules/user/service"

	vocabHttp "anoa.com/polychat/internal/modules/vocab/delivery/http"
	vocabRepo "anoa.com/polychat/internal/modules/vocab/repository"
	vocabService "anoa.com/polychat/internal/modules/vocab/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	hub         *sessionService.Hub
	scheduler   *scheduler.Scheduler
	http        *http.Server
}

// NewServer wires every module onto one gin engine. redisClient may be nil,
// in which case pub/sub and the channel cache stay in process.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	log := logging.Component("server")
	var err error

	var broker realtime.Broker
	var cache channelService.Cache
	if redisClient != nil {
		broker = realtime.NewRedisBroker(redisClient)
		cache = channelService.NewRedisCache(redisClient)
	} else {
		log.Warn().Msg("redis not configured, using in-process broker and channel cache")
		broker = realtime.NewMemoryBroker()
		cache = channelService.NewMemoryCache()
	}

	// Initialize Meilisearch
	var userIndex searchService.UserIndex
	if cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		userIndex = searchService.NewMeiliUserIndex(meiliClient)
	} else {
		log.Info().Msg("meilisearch not configured, user search uses the database")
	}

	var imageStorage storage.ImageStorage
	if cfg.CloudinaryURL != "" {
		imageStorage, err = storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryCloudName)
		if err != nil && !errors.Is(err, storage.ErrNotConfigured) {
			return nil, fmt.Errorf("failed to initialize cloudinary storage: %w", err)
		}
	}
	if imageStorage == nil {
		log.Info().Msg("cloudinary not configured, avatar upload disabled")
	}

	textService, aiHandler, err := setupAI(cfg)
	if err != nil {
		return nil, err
	}

	// User Module
	usersRepository := userRepo.NewUserRepository(db)
	userSvc := userService.NewService(usersRepository, broker, redisClient, userIndex, imageStorage, userService.Options{
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.JWTTTL,
		PresenceWindow: cfg.PresenceWindow,
		AvatarFolder:   cfg.CloudinaryUploadFolder,
	})
	userHandler := userHttp.NewUserHandler(userSvc)

	// Mailbox Module
	mailboxRepository := mailboxRepo.NewRepository(db)
	notifier := mailboxService.NewNotifier(mailboxRepository, broker)

	// Message Module
	messageRepository := messageRepo.NewRepository(db)
	messageSvc := messageService.NewService(messageRepository, broker, userSvc, textService, notifier, messageService.Options{
		PageSize:  cfg.HistoryPageSize,
		AITimeout: cfg.AITimeout,
	})
	messageHandler := messageHttp.NewMessageHandler(messageSvc)

	// Vocab Module
	vocabRepository := vocabRepo.NewRepository(db)
	vocabSvc := vocabService.NewService(vocabRepository, textService, cfg.AITimeout)
	vocabHandler := vocabHttp.NewVocabHandler(vocabSvc)

	// Session Module
	hub := sessionService.NewHub(cache, mailboxRepository, broker, userSvc, cfg.HeartbeatInterval)
	tracker := presenceService.NewTracker(userSvc, broker, cfg.PresenceWindow)
	channelHandler := sessionHttp.NewChannelHandler(hub)
	wsHandler := sessionHttp.NewWebSocketHandler(hub, messageSvc, tracker)

	jobs := scheduler.New()
	if err := jobs.Register(mailboxService.NewRedeliveryJob(mailboxRepository, broker, cfg.MailboxSweepSchedule, cfg.MailboxStaleAfter)); err != nil {
		return nil, fmt.Errorf("failed to register mailbox job: %w", err)
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/ws"},
	}))

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	api := router.Group("/api")

	if aiHandler != nil {
		aiHandler.Register(api, "/ai")
	}

	userHandler.RegisterRoutes(api, authMiddleware.RequireAuth())

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		channels := protected.Group("/channels")
		channelHandler.RegisterRoutes(channels)
		messageHandler.RegisterRoutes(channels)

		vocabHandler.RegisterRoutes(protected.Group("/vocab"))

		protected.GET("/ws", wsHandler.HandleWebSocket)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		hub:         hub,
		scheduler:   jobs,
		http:        &http.Server{Addr: ":" + cfg.Port, Handler: router},
	}, nil
}

// setupAI picks the text backend. A proxy URL wins over an in-process
// Gemini gateway; the gateway is also served at /api/ai for other clients.
func setupAI(cfg *config.Config) (ai.TextService, *ai.Handler, error) {
	log := logging.Component("server")

	var handler *ai.Handler
	var gateway *ai.Gateway
	if cfg.GeminiAPIKey != "" {
		provider, err := providers.NewGeminiProvider(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTTSModel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize gemini provider: %w", err)
		}
		gateway = ai.NewGateway(provider, cfg.AITimeout)
		handler = ai.NewHandler(gateway)
	}

	switch {
	case cfg.AIProxyURL != "":
		return ai.NewClient(cfg.AIProxyURL, cfg.AITimeout), handler, nil
	case gateway != nil:
		return gateway, handler, nil
	default:
		log.Warn().Msg("no AI backend configured, translation and replies are disabled")
		return ai.Disabled{}, nil, nil
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the jobs and serves until Shutdown.
func (s *Server) Run() error {
	s.scheduler.Start()
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the jobs, closes live sessions and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.scheduler.Stop()
	s.hub.Close()
	return s.http.Shutdown(ctx)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:5173"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

// RunJob executes one registered background job immediately.
func (s *Server) RunJob(ctx context.Context, name string) error {
	return s.scheduler.RunByName(ctx, name)
}

func (s *Server) JobNames() []string {
	return s.scheduler.Names()
}
