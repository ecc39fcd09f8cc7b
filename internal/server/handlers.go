package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/core/ingest"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
	"github.com/KMMOrganisation/ParliQ/internal/youtube"
)

func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	storage := "ok"
	if _, err := s.ParliQ.Status(ctx); err != nil {
		s.logger.Warn("health check: storage unreachable", zap.Error(err))
		storage = "unreachable"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": storage})
}

func (s *Server) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid_request", "request body must be a JSON chat request")
		return
	}
	resp, err := s.ParliQ.Chat.Respond(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type IngestRequest struct {
	URL  string `json:"url"`
	SRT  string `json:"srt"`
	Sync bool   `json:"sync"`
}

func (s *Server) IngestVideo(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid_request", "request body must be JSON with a url field")
		return
	}
	if _, err := youtube.ParseVideoID(req.URL); err != nil {
		writeError(c, err)
		return
	}

	opts := ingest.Options{SRT: req.SRT}
	if req.Sync {
		res, err := s.ParliQ.Ingest.IngestVideo(c.Request.Context(), req.URL, opts)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	job := s.ParliQ.Jobs.Start(ingest.KindVideo, req.URL, opts)
	c.JSON(http.StatusAccepted, job)
}

type IngestChannelRequest struct {
	Channel   string `json:"channel"`
	Since     string `json:"since"`
	MaxVideos int    `json:"max_videos"`
}

func (s *Server) IngestChannel(c *gin.Context) {
	var req IngestChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid_request", "request body must be JSON with a channel field")
		return
	}
	if _, err := youtube.ParseChannelRef(req.Channel); err != nil {
		writeError(c, err)
		return
	}
	if req.MaxVideos < 0 {
		writeError(c, fmt.Errorf("max_videos must not be negative: %w", apperrors.ErrInvalidInput))
		return
	}

	opts := ingest.Options{MaxVideos: req.MaxVideos}
	if req.Since != "" {
		since, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			writeError(c, fmt.Errorf("since must be an RFC 3339 timestamp: %w", apperrors.ErrInvalidInput))
			return
		}
		opts.Since = since
	}

	job := s.ParliQ.Jobs.Start(ingest.KindChannel, req.Channel, opts)
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.ParliQ.Jobs.List()})
}

func (s *Server) GetJob(c *gin.Context) {
	job, err := s.ParliQ.Jobs.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) CancelJob(c *gin.Context) {
	job, err := s.ParliQ.Jobs.Cancel(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) Status(c *gin.Context) {
	counts, err := s.ParliQ.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (s *Server) Stats(c *gin.Context) {
	st, err := s.ParliQ.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, fmt.Errorf("limit must be a non-negative integer: %w", apperrors.ErrInvalidInput))
			return
		}
		limit = n
	}

	hits, err := s.ParliQ.Search(c.Request.Context(), query, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "results": hits})
}

func (s *Server) ListVideos(c *gin.Context) {
	videos, err := s.ParliQ.Repo.ListVideos(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if videos == nil {
		videos = []model.Video{}
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

func (s *Server) GetVideo(c *gin.Context) {
	v, err := s.ParliQ.Repo.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v.Video)
}

func (s *Server) Transcript(c *gin.Context) {
	segs, err := s.ParliQ.Repo.Transcript(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"video_id": c.Param("id"), "segments": segs})
}

func (s *Server) Entities(c *gin.Context) {
	ents, err := s.ParliQ.Repo.Entities(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"video_id": c.Param("id"), "entities": ents})
}

func (s *Server) DeleteVideo(c *gin.Context) {
	if err := s.ParliQ.DeleteVideo(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) Export(c *gin.Context) {
	doc, err := s.ParliQ.Export(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+doc.Filename)
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}
