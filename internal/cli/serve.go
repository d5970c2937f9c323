package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/internal/config"
	"github.com/portfolio/portfolio/backend/go-services/internal/database"
	"github.com/portfolio/portfolio/backend/go-services/internal/projects"
	"github.com/portfolio/portfolio/backend/go-services/internal/server"
	"github.com/portfolio/portfolio/backend/go-services/internal/sessions"
	"github.com/portfolio/portfolio/backend/go-services/internal/storage"
	"github.com/portfolio/portfolio/backend/go-services/internal/users"
	"github.com/portfolio/portfolio/backend/go-services/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	connectRetryWindow = time.Minute
	shutdownTimeout    = 10 * time.Second
)

// ServeCmd returns the command that runs the HTTP API.
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the portfolio API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

// backends are the connections shared by the commands.
type backends struct {
	cfg   *config.Config
	log   *zap.Logger
	mongo *mongo.Client
	db    *mongo.Database
	redis *redis.Client
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.mongo.Disconnect(ctx)
	}
	_ = b.log.Sync()
}

func connect(ctx context.Context) (*backends, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	b := &backends{cfg: cfg, log: logger.New(cfg.Log.Level, cfg.Log.Format)}

	b.mongo, err = database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, connectRetryWindow, b.log)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	b.db = b.mongo.Database(cfg.MongoDB.Database)
	b.log.Info("connected to mongodb", zap.String("database", cfg.MongoDB.Database))

	if cfg.Redis.Enabled() {
		b.redis, err = database.ConnectRedis(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		switch {
		case err == nil:
			b.log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr()))
		case cfg.RateLimit.UseRedis:
			b.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		default:
			b.log.Warn("redis unavailable, token revocation disabled", zap.Error(err))
		}
	}
	return b, nil
}

func serve(ctx context.Context) error {
	b, err := connect(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	cfg, log := b.cfg, b.log

	projectStore, err := projects.NewMongoStore(ctx, b.db)
	if err != nil {
		return err
	}
	userStore, err := users.NewMongoStore(ctx, b.db)
	if err != nil {
		return err
	}

	checks := map[string]server.Check{
		"mongodb": func(ctx context.Context) error { return b.mongo.Ping(ctx, nil) },
	}
	var sessionRepo sessions.Repository
	if b.redis != nil {
		sessionRepo = sessions.NewRedisRepository(b.redis, "session:")
		checks["redis"] = func(ctx context.Context) error { return b.redis.Ping(ctx).Err() }
	} else if sessionRepo, err = sessions.NewMongoRepository(ctx, b.db.Collection("sessions")); err != nil {
		return err
	}

	deps := server.Deps{
		Config:   cfg,
		Logger:   log,
		Projects: projectStore,
		Users:    userStore,
		Sessions: sessionRepo,
		Redis:    b.redis,
		Checks:   checks,
	}
	if cfg.MinIO.Enabled() {
		objects, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			log.Warn("object storage unavailable, uploads disabled", zap.Error(err))
		} else {
			deps.Objects = objects
			checks["minio"] = objects.Ping
		}
	}

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
