// Package server exposes a compiled settings tree over a read-only HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sourceplane/pipecfg/internal/chain"
	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/sourceplane/pipecfg/internal/render"
	"github.com/sourceplane/pipecfg/internal/resolve"
	"github.com/sourceplane/pipecfg/internal/validate"
)

// HealthResponse is returned by /health
type HealthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Version    string `json:"version"`
	BuildTypes int    `json:"buildTypes"`
}

// BuildTypeSummary is one entry of the build type listing
type BuildTypeSummary struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Project   string              `json:"project"`
	Type      model.BuildTypeKind `json:"type"`
	Templates []string            `json:"templates,omitempty"`
}

// ValidationResponse is returned by /api/v1/validation
type ValidationResponse struct {
	Valid  bool             `json:"valid"`
	Issues []validate.Issue `json:"issues"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves one settings tree, loaded once at startup
type Server struct {
	normalized *model.NormalizedSettings
	analyzer   *resolve.Analyzer
	exporter   *render.Exporter
	chains     *chain.Builder
	result     *validate.Result
	logger     *slog.Logger
}

// New creates a server from a validation result. Settings with structural
// problems cannot be served.
func New(result *validate.Result, logger *slog.Logger) (*Server, error) {
	if result == nil || result.Normalized == nil {
		return nil, errors.New("settings could not be indexed; fix validation errors first")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		normalized: result.Normalized,
		analyzer:   result.Analyzer,
		exporter:   render.NewExporter(result.Normalized, result.Analyzer),
		chains:     chain.NewBuilder(result.Analyzer),
		result:     result,
		logger:     logger,
	}, nil
}

// Router builds the gin engine with CORS and request logging
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Accept", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers every route on r
func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", s.health)

	api := r.Group("/api/v1")
	api.GET("/settings", s.settings)
	api.GET("/settings.kts", s.settingsKotlin)
	api.GET("/build-types", s.buildTypes)
	api.GET("/build-types/:id", s.buildType)
	api.GET("/build-types/:id/chain", s.chain)
	api.GET("/validation", s.validation)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Handled request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		Service:    "pipecfg",
		Version:    s.normalized.Settings.Version,
		BuildTypes: len(s.normalized.BuildTypeOrder),
	})
}

func (s *Server) settings(c *gin.Context) {
	c.JSON(http.StatusOK, s.normalized.Settings)
}

func (s *Server) settingsKotlin(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(render.RenderKotlin(s.normalized)))
}

func (s *Server) buildTypes(c *gin.Context) {
	list := make([]BuildTypeSummary, 0, len(s.normalized.BuildTypeOrder))
	for _, id := range s.normalized.BuildTypeOrder {
		bt := s.normalized.BuildTypes[id]
		list = append(list, BuildTypeSummary{
			ID:        id,
			Name:      bt.Name,
			Project:   s.normalized.Owners[id],
			Type:      bt.Type,
			Templates: bt.Templates,
		})
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) buildType(c *gin.Context) {
	eff, err := s.analyzer.BuildType(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, eff)
}

func (s *Server) chain(c *gin.Context) {
	ch, err := s.chains.Chain(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (s *Server) validation(c *gin.Context) {
	issues := s.result.Issues
	if issues == nil {
		issues = []validate.Issue{}
	}
	c.JSON(http.StatusOK, ValidationResponse{Valid: !s.result.HasErrors(), Issues: issues})
}

func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, resolve.ErrUnknownBuildType) {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	s.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// Run serves handler on addr until ctx is cancelled
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}
