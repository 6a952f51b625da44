// Package http serves the health, metrics, and alert query endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/monitor"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// AlertService is the query surface of the monitor.
type AlertService interface {
	ReadinessChecker
	Latest() (monitor.Snapshot, bool)
	Evaluate(ctx context.Context, thresholdKm float64, types []string) ([]domain.ProximityAlert, error)
	Disasters(ctx context.Context, types []string) ([]domain.DisasterEvent, error)
	Types() []string
	Threshold() float64
}

// PersonLister returns the stored persons.
type PersonLister interface {
	ListPersons(ctx context.Context) ([]domain.PersonLocation, error)
}

// Server exposes health, readiness, metrics, and the alert API.
type Server struct {
	httpServer *http.Server
	alerts     AlertService
	persons    PersonLister
	logger     *slog.Logger
}

// NewServer creates an HTTP server. rps bounds the global request rate of
// the /api routes.
func NewServer(addr string, alerts AlertService, persons PersonLister, rps int, logger *slog.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		alerts:  alerts,
		persons: persons,
		logger:  logger,
	}

	router.GET("/healthz", s.handleHealth)
	router.GET("/readyz", handleReady(alerts))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1", RateLimitMiddleware(rps))
	api.GET("/alerts", s.handleAlerts)
	api.GET("/persons", s.handlePersons)
	api.GET("/disasters", s.handleDisasters)
	api.GET("/types", s.handleTypes)
	api.GET("/map", s.handleMap)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
