package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rankboard/rankboard/handlers"
	boardrepo "github.com/rankboard/rankboard/internal/board/repository"
	boardsvc "github.com/rankboard/rankboard/internal/board/service"
	chatrepo "github.com/rankboard/rankboard/internal/chat/repository"
	chatsvc "github.com/rankboard/rankboard/internal/chat/service"
	"github.com/rankboard/rankboard/internal/config"
	"github.com/rankboard/rankboard/internal/database"
	"github.com/rankboard/rankboard/internal/realtime"
	"github.com/rankboard/rankboard/internal/storage"
	"github.com/rankboard/rankboard/pkg/logger"
	"github.com/rankboard/rankboard/pkg/metrics"
	"github.com/rankboard/rankboard/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple — production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Global middlewares: logging + recovery
	r.Use(gin.Logger(), gin.Recovery())

	// Connect to Redis early so the rate-limiter can use it when configured
	var importedRedis *redis.Client
	if cfg.Redis.Host != "" {
		importedRedis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := importedRedis.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			importedRedis = nil
		} else {
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Optional global rate limiter (per client IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && importedRedis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(importedRedis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Connect to MongoDB with retry/backoff to tolerate startup races; fall
	// back to in-memory repositories when no URI is configured or the
	// connection never comes up (dev mode, state lost on restart).
	ctx := context.Background()
	var boardRepo boardsvc.Repository = boardrepo.NewMemoryRepo()
	var chatRepo chatsvc.Repository = chatrepo.NewMemoryRepo()
	mongoReady := false
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts, using in-memory state: %v", maxAttempts, errConn)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			db := client.Database(cfg.MongoDB.Database)
			boardRepo = boardrepo.NewMongoRepo(db.Collection("rankingLists"), db.Collection("settings"))
			chatRepo = chatrepo.NewMongoRepo(db.Collection("chat"))
			mongoReady = true
			logger.Infof("Using MongoDB database %q", cfg.MongoDB.Database)
		}
	} else {
		logger.Warnf("MONGODB_URI not set, state is in-memory only")
	}

	// Realtime core: registry/broadcaster, services, event dispatch
	hub := realtime.NewHub()
	boardService := boardsvc.NewService(boardRepo, hub)
	chatService := chatsvc.NewService(chatRepo, hub)
	dispatcher := realtime.NewDispatcher()
	realtime.NewEventHandlers(boardService, chatService).Register(dispatcher)
	r.GET("/ws", realtime.ServeWS(hub, dispatcher))

	// Image upload endpoint, backed by MinIO when configured
	minioCfg := storage.LoadMinIOConfig()
	assetReady := false
	if minioCfg.Endpoint != "" {
		store, err := storage.NewMinIOStorage(minioCfg)
		if err != nil {
			logger.Warnf("minio unavailable, upload endpoint disabled: %v", err)
		} else {
			handlers.RegisterUploadRoutes(r, store)
			assetReady = true
			logger.Infof("Upload endpoint enabled (bucket %q)", minioCfg.Bucket)
		}
	} else {
		logger.Warnf("MINIO_ENDPOINT not set, upload endpoint disabled")
	}

	// Static frontend
	if cfg.Web.Root != "" {
		r.Static("/public", cfg.Web.Root)
		r.StaticFile("/", filepath.Join(cfg.Web.Root, "index.html"))
	}

	handlers.RegisterSwagger(r)

	// Basic health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint — the memory fallback keeps the service functional,
	// so only report which dependencies are durable
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"mongo": mongoReady,
			"redis": importedRedis != nil,
			"minio": assetReady,
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "sessions": hub.Count(), "uptime": fmt.Sprintf("%s", time.Since(startTime))})
	})

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Config summary: mongo=%v redis=%v minio=%v web_root=%q", mongoReady, importedRedis != nil, assetReady, cfg.Web.Root)
	logger.Infof("Starting rankboard server on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
