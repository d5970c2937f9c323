package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/internal/config"
	"github.com/portfolio/portfolio/backend/go-services/internal/database"
	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/projects"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"github.com/portfolio/portfolio/backend/go-services/internal/tokens"
	"github.com/portfolio/portfolio/backend/go-services/pkg/logger"
	"github.com/portfolio/portfolio/backend/go-services/pkg/middleware"
	"go.uber.org/zap"
)

// Standalone projects catalogue. Reads are public; writes need an admin
// access token signed with JWT_SECRET.
func main() {
	port := os.Getenv("PROJECTS_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.JWT.Secret == "" {
		logger.Fatalf("JWT_SECRET is required")
	}

	// Mongo when configured, memory otherwise
	var store resource.Store[models.Project]
	if cfg.MongoDB.URI != "" {
		ctx := context.Background()
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			log.Warn("cannot connect to MongoDB, using memory store", zap.Error(err))
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			ms, err := projects.NewMongoStore(ctx, client.Database(cfg.MongoDB.Database))
			if err != nil {
				logger.Fatalf("open projects collection: %v", err)
			}
			store = ms
		}
	}
	if store == nil {
		store = resource.NewMemoryStore[models.Project]("slug")
	}

	issuer := tokens.NewIssuer(cfg.JWT)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), logger.GinMiddleware(log), middleware.CORS(cfg.Server.ClientURL))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"success": true, "status": "healthy", "time": time.Now().UTC()})
	})
	projects.Register(r.Group("/api/v1/projects"),
		projects.NewController(store, log), projects.NewHandler(store, log),
		middleware.AuthMiddleware(issuer, nil), middleware.Authorize(models.RoleAdmin))

	log.Info("projects service listening", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("server: %v", err)
	}
}
