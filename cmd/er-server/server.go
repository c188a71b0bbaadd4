package main

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/meridian/er/internal/config"
	"github.com/meridian/er/internal/domain/analytics"
	"github.com/meridian/er/internal/domain/prediction"
	"github.com/meridian/er/internal/domain/simulation"
	"github.com/meridian/er/internal/domain/survey"
	"github.com/meridian/er/internal/domain/ticket"
	"github.com/meridian/er/internal/platform/auth"
	"github.com/meridian/er/internal/platform/db"
	"github.com/meridian/er/internal/platform/events"
	"github.com/meridian/er/internal/platform/middleware"
	"github.com/meridian/er/internal/platform/resources"
)

const rootMessage = "Meridian ER API is running."

// serverDeps are the long-lived values the HTTP server is built from. Cache
// and DB are optional.
type serverDeps struct {
	cfg    *config.Config
	store  *resources.Store
	pub    events.Publisher
	cache  redis.Cmdable
	db     db.Pinger
	logger zerolog.Logger
}

func newServer(d serverDeps) *echo.Echo {
	cfg, logger := d.cfg, d.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 || rateLimitCfg.BurstSize <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	rateLimitCfg.Skipper = func(c echo.Context) bool {
		return strings.HasPrefix(c.Path(), "/health")
	}
	e.Use(middleware.RateLimit(rateLimitCfg))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": rootMessage})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"resources": d.store.Summary(),
		})
	})
	if d.db != nil {
		e.GET("/health/db", db.HealthHandler(d.db))
	}

	predictGroup := e.Group("/predict")
	prediction.NewHandler(prediction.NewService(d.store)).RegisterRoutes(predictGroup)
	simulation.NewHandler(simulation.NewService(d.store.WaitTime, cfg.SimulationMaxSteps)).RegisterRoutes(predictGroup)

	analyticsGroup := e.Group("/analytics")
	if d.cache != nil {
		analyticsGroup.Use(middleware.RedisCache(d.cache, cfg.CacheTTL, logger))
	}
	analytics.NewHandler(analytics.NewService(d.store.Visits, d.store.Staffing)).RegisterRoutes(analyticsGroup)

	tickets := ticket.NewService(ticket.NewMemoryRepo(ticket.Seed()), d.pub, logger)
	ticket.NewHandler(tickets).RegisterRoutes(e.Group("/tickets"), staffAuth(cfg)...)

	survey.NewHandler(survey.NewService(d.pub, logger)).RegisterRoutes(e.Group("/surveys"))

	return e
}

// staffAuth returns the middleware chain guarding staff-only routes.
func staffAuth(cfg *config.Config) []echo.MiddlewareFunc {
	authn := auth.DevAuthMiddleware()
	if !cfg.IsDev() {
		authn = auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.JWTSigningKey),
			Issuer:     cfg.JWTIssuer,
		})
	}
	return []echo.MiddlewareFunc{authn, auth.RequireRole(auth.RoleStaff)}
}
