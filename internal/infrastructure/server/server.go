package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	httpHandlers "github.com/nexusplan/core/internal/adapters/http"
	"github.com/nexusplan/core/internal/application/notify"
	"github.com/nexusplan/core/internal/application/services"
	"github.com/nexusplan/core/internal/application/store"
	syncbridge "github.com/nexusplan/core/internal/application/sync"
	"github.com/nexusplan/core/internal/domain/entities"
	"github.com/nexusplan/core/internal/infrastructure/config"
	"github.com/nexusplan/core/internal/infrastructure/database"
	"github.com/nexusplan/core/internal/infrastructure/logger"
	"github.com/nexusplan/core/internal/ports"
)

// Dependencies carries the wired application core into the server. DB,
// Bridge and Auth are nil when cloud sync is disabled; the data routes keep
// working against the local store alone.
type Dependencies struct {
	Store    *store.Store
	Medium   ports.Medium
	Notifier *notify.Notifier
	Planner  *services.PlannerService
	Auth     *services.AuthService
	Bridge   *syncbridge.Bridge
	DB       *database.DB
}

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	deps   Dependencies
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, deps Dependencies, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		deps:   deps,
	}

	server.setupMiddleware()

	collectionHandler := httpHandlers.NewCollectionHandler(deps.Store, appLogger)
	plannerHandler := httpHandlers.NewPlannerHandler(deps.Planner, appLogger)
	changesHandler := httpHandlers.NewChangesHandler(deps.Notifier, appLogger)

	var authHandler *httpHandlers.AuthHandler
	if deps.Auth != nil {
		authHandler = httpHandlers.NewAuthHandler(deps.Auth, appLogger)
	}

	server.setupRoutes(authHandler, collectionHandler, plannerHandler, changesHandler)

	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	}))

	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	s.echo.Use(middleware.RequestID())

	// The change feed holds its connection open; everything else gets the
	// standard timeout.
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/v1/changes"
		},
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(authHandler *httpHandlers.AuthHandler, collectionHandler *httpHandlers.CollectionHandler, plannerHandler *httpHandlers.PlannerHandler, changesHandler *httpHandlers.ChangesHandler) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Auth routes; only mounted when cloud sync is configured
	if authHandler != nil {
		authGroup := v1.Group("/auth")
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout, s.authMiddleware(s.deps.Auth))
		authGroup.GET("/me", authHandler.Me, s.authMiddleware(s.deps.Auth))
	}

	// Raw collection access
	collectionGroup := v1.Group("/collections")
	collectionGroup.GET("", collectionHandler.List)
	collectionGroup.GET("/:name", collectionHandler.Get)
	collectionGroup.PUT("/:name", collectionHandler.Put)
	collectionGroup.POST("/:name/reset", collectionHandler.Reset)

	// Task routes
	taskGroup := v1.Group("/tasks")
	taskGroup.GET("", plannerHandler.ListTasks)
	taskGroup.POST("", plannerHandler.CreateTask)
	taskGroup.POST("/:id/toggle", plannerHandler.ToggleTask)
	taskGroup.POST("/:id/move", plannerHandler.MoveTask)
	taskGroup.DELETE("/:id", plannerHandler.DeleteTask)

	// Schedule routes
	scheduleGroup := v1.Group("/schedule")
	scheduleGroup.GET("", plannerHandler.ListSchedule)
	scheduleGroup.POST("", plannerHandler.CreateScheduleEntry)
	scheduleGroup.POST("/reset", plannerHandler.ResetSchedule)
	scheduleGroup.PUT("/:id", plannerHandler.UpdateScheduleEntry)
	scheduleGroup.DELETE("/:id", plannerHandler.DeleteScheduleEntry)

	// Event routes
	eventGroup := v1.Group("/events")
	eventGroup.GET("", plannerHandler.ListEvents)
	eventGroup.POST("", plannerHandler.CreateEvent)
	eventGroup.DELETE("/:id", plannerHandler.DeleteEvent)

	// Note routes
	noteGroup := v1.Group("/notes")
	noteGroup.GET("", plannerHandler.ListNotes)
	noteGroup.POST("", plannerHandler.SaveNote)
	noteGroup.DELETE("/:id", plannerHandler.DeleteNote)

	// Dashboard and change feed
	v1.GET("/dashboard", plannerHandler.Dashboard)
	v1.GET("/changes", changesHandler.Stream)
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	checks["store"] = map[string]interface{}{
		"status": "ok",
		"stats":  s.deps.Store.Stats(),
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.HealthCheck(); err != nil {
			status = "error"
			checks["database"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		} else {
			checks["database"] = map[string]interface{}{
				"status": "ok",
				"stats":  s.deps.DB.GetConnectionInfo(),
			}
		}
	}

	if s.deps.Bridge != nil {
		checks["sync"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.deps.Bridge.Stats(),
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  "1.21",
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	// Cloud sync is best-effort; only the local medium gates readiness.
	if _, _, err := s.deps.Medium.Get(entities.CollectionSettings.Key()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "storage_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if text, ok := he.Message.(string); ok {
				msg = httpHandlers.ErrorResponse{Error: text}
			} else {
				msg = he.Message
			}
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else if e, ok := err.(*validator.ValidationErrors); ok {
			code = http.StatusBadRequest
			msg = httpHandlers.ErrorResponse{Error: "validation failed", Details: e.Error()}
		} else {
			msg = httpHandlers.ErrorResponse{Error: http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Errorw("Error sending response", "error", err)
			}
		}
	}
}
