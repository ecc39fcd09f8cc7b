package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/core"
)

const healthTimeout = 3 * time.Second

type Server struct {
	ParliQ *core.ParliQ
	logger *zap.Logger
}

func NewServer(app *core.ParliQ, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{ParliQ: app, logger: logger.Named("http")}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.logger))

	r.GET("/health", s.Health)

	api := r.Group("/api")
	api.POST("/chat", s.Chat)

	api.POST("/ingest", s.IngestVideo)
	api.POST("/ingest/channel", s.IngestChannel)
	api.GET("/jobs", s.ListJobs)
	api.GET("/jobs/:id", s.GetJob)
	api.DELETE("/jobs/:id", s.CancelJob)

	api.GET("/status", s.Status)
	api.GET("/stats", s.Stats)
	api.GET("/search", s.Search)

	api.GET("/videos", s.ListVideos)
	api.GET("/videos/:id", s.GetVideo)
	api.GET("/videos/:id/transcript", s.Transcript)
	api.GET("/videos/:id/entities", s.Entities)
	api.DELETE("/videos/:id", s.DeleteVideo)

	api.GET("/export/knowledge-graph.ttl", s.Export)

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
