package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bugsort/internal/clusterstore"
	"bugsort/internal/logging"
	"bugsort/internal/metrics"
	"bugsort/internal/services"
)

const (
	defaultSampleSize = 6
	requestIDHeader   = "X-Request-ID"
	shutdownTimeout   = 5 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, "review")
		}
	}
}

// WithMetrics exposes m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSampleSize caps the sample items listed per cluster.
func WithSampleSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.sampleSize = n
		}
	}
}

// WithToken requires "Authorization: Bearer <token>" on label and merge
// requests. An empty token disables the check.
func WithToken(token string) Option {
	return func(s *Server) { s.token = strings.TrimSpace(token) }
}

// Server exposes a cluster store for human review over HTTP.
type Server struct {
	store      *clusterstore.Store
	logger     *slog.Logger
	metrics    *metrics.Metrics
	sampleSize int
	token      string
}

// New builds a review server over store.
func New(store *clusterstore.Store, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("review: store is required")
	}
	s := &Server{store: store, logger: logging.NewNop(), sampleSize: defaultSampleSize}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router returns the HTTP handler tree.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	api.GET("/clusters", s.listClusters)
	api.GET("/clusters/:id", s.getCluster)

	mutating := api.Group("", s.auth())
	mutating.POST("/clusters/:id/label", s.labelCluster)
	mutating.POST("/merge", s.mergeClusters)
	return r
}

// Serve listens on bind until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, bind string) error {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("review listen: %w", err)
	}
	return s.serve(ctx, listener)
}

func (s *Server) serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("review server listening", logging.String("address", listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("review serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("review shutdown: %w", err)
	}
	s.logger.Info("review server stopped")
	return nil
}

// requestID tags each request with an ID, reusing the caller's when sent.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.token == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
