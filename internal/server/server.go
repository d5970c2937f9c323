package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/handlers"
	"github.com/portfolio/portfolio/backend/go-services/internal/config"
	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/projects"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"github.com/portfolio/portfolio/backend/go-services/internal/sessions"
	"github.com/portfolio/portfolio/backend/go-services/internal/tokens"
	"github.com/portfolio/portfolio/backend/go-services/internal/users"
	"github.com/portfolio/portfolio/backend/go-services/pkg/logger"
	"github.com/portfolio/portfolio/backend/go-services/pkg/metrics"
	"github.com/portfolio/portfolio/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Deps are the collaborators the router is built from. Redis, Objects and
// Registry are optional.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Projects resource.Store[models.Project]
	Users    resource.Store[models.User]
	Sessions sessions.Repository
	Redis    *redis.Client
	Objects  handlers.ObjectStore
	Checks   map[string]Check
	Registry *prometheus.Registry
}

var startTime = time.Now()

// NewRouter assembles the API.
func NewRouter(d Deps) *gin.Engine {
	cfg, log := d.Config, d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
		d.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	metrics.RegisterCollectors(d.Registry)

	r := gin.New()
	r.Use(
		gin.CustomRecovery(func(c *gin.Context, err any) {
			log.Error("panic recovered", zap.Any("error", err), zap.String("path", c.Request.URL.Path))
			resource.Fail(c, http.StatusInternalServerError, "Internal server error")
		}),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.CORS(cfg.Server.ClientURL),
		middleware.SecureHeaders(),
	)
	r.NoRoute(func(c *gin.Context) {
		resource.Fail(c, http.StatusNotFound, "Route not found.")
	})

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "healthy", "uptime": time.Since(startTime).String()})
	}
	r.GET("/health", health)
	r.GET("/ready", ready(d.Checks))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	handlers.RegisterSwagger(r)

	api := r.Group("/api/v1")
	api.GET("/health", health)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && d.Redis != nil {
			api.Use(middleware.RedisRateLimitMiddleware(d.Redis, cfg.RateLimit.Max, cfg.RateLimit.Window))
		} else {
			api.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Max, cfg.RateLimit.Window))
		}
	}

	issuer := tokens.NewIssuer(cfg.JWT)
	blacklist := sessions.NewBlacklist(d.Redis)
	auth := middleware.AuthMiddleware(issuer, blacklist)
	admin := []gin.HandlerFunc{auth, middleware.Authorize(models.RoleAdmin)}

	// uploads carry their own size limit
	if d.Objects != nil {
		handlers.NewUploadHandler(d.Objects, cfg.Upload, log).Register(api, admin...)
	}

	body := api.Group("", limitBody(cfg.Server.MaxBodySize))
	userSvc := users.NewService(d.Users, cfg.Auth.BcryptCost, log)
	handlers.NewAuthHandler(userSvc, sessions.NewService(d.Sessions), issuer, blacklist, cfg.Server.IsProduction(), log).
		Register(body, auth)
	projects.Register(body.Group("/projects"),
		projects.NewController(d.Projects, log), projects.NewHandler(d.Projects, log), admin...)
	users.Register(body.Group("/users"), users.NewController(d.Users, log), admin...)

	return r
}

func limitBody(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}

// ready runs every check concurrently and answers 503 when any fails.
func ready(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		var (
			mu   sync.Mutex
			wg   sync.WaitGroup
			deps = make(map[string]bool, len(checks))
		)
		for name, check := range checks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := check(ctx)
				mu.Lock()
				deps[name] = err == nil
				mu.Unlock()
			}()
		}
		wg.Wait()

		status, state := http.StatusOK, "ready"
		for _, ok := range deps {
			if !ok {
				status, state = http.StatusServiceUnavailable, "not_ready"
			}
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	}
}
