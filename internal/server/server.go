package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/coplay/internal/domain"
	apperrors "github.com/pscheid92/coplay/internal/errors"
	"github.com/pscheid92/coplay/internal/platform/config"
	"github.com/pscheid92/coplay/internal/relay"
	"github.com/pscheid92/coplay/internal/websocket"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// ReplySink ingests relay reply callbacks from hosting clients.
type ReplySink interface {
	HandleReply(requestID string, reply relay.Reply)
}

// redisPinger is the minimal Redis surface the readiness check needs.
type redisPinger interface {
	Ping(ctx context.Context) *goredis.StatusCmd
}

// postgresPinger is the minimal database surface the readiness check needs.
type postgresPinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo         *echo.Echo
	config       *config.Config
	app          domain.AppService
	hub          *websocket.Hub
	replies      ReplySink
	db           postgresPinger
	redisClient  redisPinger
	wsLimiter    *connectionLimiter
	inputLimiter echo.MiddlewareFunc
	startTime    time.Time
}

func NewServer(cfg *config.Config, app domain.AppService, hub *websocket.Hub, replies ReplySink, db postgresPinger, redisClient redisPinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(correlationMiddleware())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		hub:          hub,
		replies:      replies,
		db:           db,
		redisClient:  redisClient,
		wsLimiter:    newConnectionLimiter(int64(cfg.MaxWebSocketConnections)),
		inputLimiter: newInputRateLimiter(cfg),
		startTime:    time.Now(),
	}

	srv.registerRoutes()
	return srv
}

// newInputRateLimiter builds the per-caller token bucket middleware for the
// input endpoint. Keyed by user ID so one spammy player cannot starve others
// behind the same NAT.
func newInputRateLimiter(cfg *config.Config) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.InputRatePerSecond),
			Burst:     cfg.InputRateBurst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if userID, ok := c.Get("userID").(string); ok && userID != "" {
				return userID, nil
			}
			return c.RealIP(), nil
		},
	})
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
