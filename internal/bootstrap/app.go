// Package bootstrap loads configuration, wires every component and runs
// the application lifecycle.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/jangdahyun/codingline/internal/handler/http"
	wsHandler "github.com/jangdahyun/codingline/internal/handler/websocket"

	"github.com/jangdahyun/codingline/internal/drawcache"
	"github.com/jangdahyun/codingline/internal/hub"
	"github.com/jangdahyun/codingline/internal/infra/blob"
	gormpersistence "github.com/jangdahyun/codingline/internal/infra/persistence/gorm"
	"github.com/jangdahyun/codingline/internal/infra/setup"
	"github.com/jangdahyun/codingline/internal/middleware"
	"github.com/jangdahyun/codingline/internal/service"
	"github.com/jangdahyun/codingline/internal/tasks"
	"github.com/jangdahyun/codingline/internal/worker"
)

// Config is loaded from the environment (optionally via .env).
type Config struct {
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret      string
	JWTExpiryHours int

	ServerPort string
	LogLevel   string
	AppEnv     string

	RateLimitMax    int
	RateLimitWindow time.Duration

	GracePeriod         time.Duration
	RoomCapacityDefault uint
	RoomCapacityMax     uint

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MinioPublicURL string

	CORSAllowedOrigin string
}

// LoadConfig reads the environment into a Config and validates it.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            os.Getenv("DB_PORT"),
		DBName:            os.Getenv("DB_NAME"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		ServerPort:        os.Getenv("SERVER_PORT"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		AppEnv:            os.Getenv("APP_ENV"),
		MinioEndpoint:     os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:    os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:    os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:       os.Getenv("MINIO_BUCKET"),
		MinioRegion:       os.Getenv("MINIO_REGION"),
		MinioUseSSL:       os.Getenv("MINIO_USE_SSL") == "true",
		MinioPublicURL:    os.Getenv("MINIO_PUBLIC_URL"),
		CORSAllowedOrigin: os.Getenv("CORS_ALLOWED_ORIGIN"),
		RateLimitMax:      100,
		RateLimitWindow:   1 * time.Second,
		JWTExpiryHours:    24,
	}

	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))

	graceSeconds, _ := strconv.Atoi(os.Getenv("GRACE_PERIOD_SECONDS"))
	if graceSeconds <= 0 {
		graceSeconds = 10
	}
	cfg.GracePeriod = time.Duration(graceSeconds) * time.Second

	capDefault, _ := strconv.Atoi(os.Getenv("ROOM_CAPACITY_DEFAULT"))
	if capDefault <= 0 {
		capDefault = 20
	}
	cfg.RoomCapacityDefault = uint(capDefault)

	capMax, _ := strconv.Atoi(os.Getenv("ROOM_CAPACITY_MAX"))
	if capMax <= 0 {
		capMax = 100
	}
	cfg.RoomCapacityMax = uint(capMax)

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.MinioEndpoint == "" {
		cfg.MinioEndpoint = "localhost:9000"
	}
	if cfg.MinioAccessKey == "" {
		cfg.MinioAccessKey = "minioadmin"
	}
	if cfg.MinioSecretKey == "" {
		cfg.MinioSecretKey = "minioadmin"
	}
	if cfg.MinioBucket == "" {
		cfg.MinioBucket = "codingline-images"
	}
	if cfg.MinioRegion == "" {
		cfg.MinioRegion = "us-east-1"
	}
	if cfg.CORSAllowedOrigin == "" {
		cfg.CORSAllowedOrigin = "http://localhost:3000"
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// App holds every long-lived component.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Hub         *hub.Hub
	HttpServer  *http.Server
}

// NewApp creates and wires all components.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	logrus.SetLevel(logLevel)
	log.Info("Configuration loaded successfully")

	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database initialized and migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	imageStore, err := blob.NewMinioImageStore(context.Background(), blob.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		Region:    cfg.MinioRegion,
		UseSSL:    cfg.MinioUseSSL,
		PublicURL: cfg.MinioPublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init image store: %w", err)
	}
	log.Info("Image store initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	log.Info("Asynq client initialized")

	log.Info("Initializing repositories...")
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	memberRepo := gormpersistence.NewGormMemberRepository(db)
	userRepo := gormpersistence.NewGormUserRepository(db)
	messageRepo := gormpersistence.NewGormMessageRepository(db)
	txManager := gormpersistence.NewGormTxManager(db)
	log.Info("Repositories initialized")

	hubInstance := hub.NewHub(redisClient)
	drawCache := drawcache.New()
	scheduler := tasks.NewScheduler(asynqClient)

	log.Info("Initializing services...")
	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	roomService := service.NewRoomService(txManager, roomRepo, memberRepo, hubInstance, drawCache,
		cfg.RoomCapacityDefault, cfg.RoomCapacityMax)
	presenceService := service.NewPresenceService(txManager, memberRepo, hubInstance, scheduler, drawCache,
		cfg.GracePeriod)
	messageService := service.NewMessageService(roomRepo, memberRepo, messageRepo, imageStore, hubInstance)
	log.Info("Services initialized")

	authHandler := httpHandler.NewAuthHandler(authService)
	roomHandler := httpHandler.NewRoomHandler(roomService, presenceService)
	messageHandler := httpHandler.NewMessageHandler(messageService)
	socketHandler := wsHandler.NewWebSocketHandler(hubInstance, presenceService, messageService, drawCache)
	log.Info("Handlers initialized")

	workerServer := worker.NewWorkerServer(redisClientOpt, presenceService, log)
	log.Info("Worker server initialized")

	log.Info("Setting up Gin router...")
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware(cfg.CORSAllowedOrigin))
	router.Use(middleware.RateLimit(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow))

	api := router.Group("/api")
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", middleware.Auth(cfg.JWTSecret), authHandler.Me)
	}
	roomRoutes := api.Group("/rooms", middleware.Auth(cfg.JWTSecret))
	{
		roomRoutes.GET("", roomHandler.ListRooms)
		roomRoutes.POST("", roomHandler.CreateRoom)
		roomRoutes.GET("/slug/:slug", roomHandler.GetRoomBySlug)
		roomRoutes.GET("/:roomId", roomHandler.GetRoom)
		roomRoutes.PATCH("/:roomId", roomHandler.UpdateRoom)
		roomRoutes.DELETE("/:roomId", roomHandler.DeleteRoom)
		roomRoutes.GET("/:roomId/can-enter", roomHandler.CanEnter)
		roomRoutes.POST("/:roomId/kick", roomHandler.KickMember)
		roomRoutes.POST("/:roomId/unban", roomHandler.UnbanMember)
		roomRoutes.POST("/:roomId/leave", roomHandler.LeaveRoom)
		roomRoutes.GET("/:roomId/messages", messageHandler.ListMessages)
		roomRoutes.POST("/:roomId/messages", messageHandler.PostMessage)
		roomRoutes.POST("/:roomId/images", messageHandler.UploadImages)
		roomRoutes.DELETE("/:roomId/images/:messageId", messageHandler.DeleteImage)
	}
	wsRoutes := router.Group("/ws", middleware.AuthWebSocket(cfg.JWTSecret))
	{
		wsRoutes.GET("/rooms/:roomId", socketHandler.HandleRoom)
		wsRoutes.GET("/lobby", socketHandler.HandleLobby)
	}
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	return &App{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		AsynqClient: asynqClient,
		AsynqServer: workerServer,
		Hub:         hubInstance,
		HttpServer:  httpServer,
	}, nil
}

// Start launches the hub, worker and HTTP server goroutines.
func (a *App) Start() {
	a.Log.Info("Starting application background routines...")
	go a.Hub.Run()
	go a.AsynqServer.Start()

	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown stops the components in reverse dependency order.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	if a.Hub != nil {
		a.Hub.StopAllSubscriptions()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}

func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware logs one structured line per request.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		switch {
		case errorMessage != "":
			entry.Error(errorMessage)
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
