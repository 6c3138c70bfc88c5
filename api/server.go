// Package api serves the menu as JSON over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"menu-companion/lang"
	"menu-companion/logger"
	"menu-companion/metric"
	"menu-companion/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Server exposes menu sessions, images and restaurant links.
type Server struct {
	sessions    *services.MenuSessions
	images      *services.ImageService
	restaurant  services.Restaurant
	strings     *lang.Resolver
	gatherer    prometheus.Gatherer
	defaultLang string
	log         zerolog.Logger
}

// New builds a Server. gatherer may be nil, in which case /metrics is not served.
func New(sessions *services.MenuSessions, images *services.ImageService, restaurant services.Restaurant, gatherer prometheus.Gatherer, defaultLang string) *Server {
	return &Server{
		sessions:    sessions,
		images:      images,
		restaurant:  restaurant,
		strings:     lang.Default(),
		gatherer:    gatherer,
		defaultLang: lang.Normalize(defaultLang),
		log:         logger.For("api"),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(metric.Handler(s.gatherer)))
	}

	v1 := r.Group("/v1")
	v1.GET("/languages", s.languages)
	v1.GET("/strings", s.stringsTable)
	v1.GET("/categories", s.categories)
	v1.GET("/categories/:id/meals", s.meals)
	v1.GET("/images/:id", s.image)
	v1.POST("/reload", s.reload)
	v1.GET("/links", s.links)
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http api listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := s.log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = s.log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

// langOf returns the normalized ?lang= value or the server default.
func (s *Server) langOf(c *gin.Context) string {
	if code := c.Query("lang"); code != "" {
		return lang.Normalize(code)
	}
	return s.defaultLang
}
