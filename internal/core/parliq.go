package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/cache"
	"github.com/KMMOrganisation/ParliQ/internal/config"
	"github.com/KMMOrganisation/ParliQ/internal/core/chat"
	"github.com/KMMOrganisation/ParliQ/internal/core/export"
	"github.com/KMMOrganisation/ParliQ/internal/core/extraction"
	"github.com/KMMOrganisation/ParliQ/internal/core/ingest"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
	"github.com/KMMOrganisation/ParliQ/internal/core/search"
	"github.com/KMMOrganisation/ParliQ/internal/core/stats"
	"github.com/KMMOrganisation/ParliQ/internal/driver"
	"github.com/KMMOrganisation/ParliQ/internal/llm"
	"github.com/KMMOrganisation/ParliQ/internal/repository"
	"github.com/KMMOrganisation/ParliQ/internal/youtube"
)

// Components are the already-constructed collaborators of a ParliQ.
// Everything except Repo is optional.
type Components struct {
	Repo        repository.Repository
	LLM         llm.LLMClient
	Driver      driver.GraphDriver
	YouTube     *youtube.Client
	Transcripts ingest.TranscriptSource
	Cache       *cache.Tiered
}

// ParliQ bundles the services shared by the HTTP server and the CLI.
type ParliQ struct {
	Config   *config.Config
	Repo     repository.Repository
	Chat     *chat.Service
	Ingest   *ingest.Service
	Jobs     *ingest.Manager
	Exporter *export.Exporter
	Mirror   *GraphMirror

	cache   *cache.Tiered
	driver  driver.GraphDriver
	closers []func() error
	logger  *zap.Logger
	now     func() time.Time
}

func NewParliQ(c Components, cfg *config.Config, logger *zap.Logger) *ParliQ {
	if logger == nil {
		logger = zap.NewNop()
	}

	var client llm.LLMClient
	if c.LLM != nil {
		client = llm.NewBreaker(c.LLM, llm.DefaultBreakerConfig, logger)
	}

	strategies := []extraction.Strategy{}
	if client != nil && cfg.Extraction.Strategy == extraction.LLMStrategy {
		strategies = append(strategies, extraction.NewLLMExtractor(client, cfg.Extraction.Prompt, cfg.LLM.Timeout()))
	}
	strategies = append(strategies, extraction.NewPatternExtractor())

	tc := c.Cache
	if tc == nil {
		tc = cache.New(nil, cfg.Redis.TTL(), cache.DefaultMaxEntries, logger)
	}

	transcripts := c.Transcripts
	if transcripts == nil {
		transcripts = youtube.NewTranscriptFetcher(cfg.YouTube, logger)
	}

	p := &ParliQ{
		Config:   cfg,
		Repo:     c.Repo,
		Exporter: export.NewExporter(c.Repo, logger),
		cache:    tc,
		driver:   c.Driver,
		logger:   logger,
		now:      time.Now,
	}

	deps := ingest.Deps{
		Repo:        c.Repo,
		Extractor:   extraction.NewChain(logger, strategies...),
		Transcripts: transcripts,
		Cache:       tc,
	}
	if c.YouTube != nil {
		deps.Metadata = c.YouTube
		deps.Channels = c.YouTube
	}
	if c.Driver != nil {
		p.Mirror = NewGraphMirror(c.Driver, logger)
		deps.Mirror = p.Mirror
	}

	p.Ingest = ingest.NewService(deps, cfg.Ingest, logger)
	p.Jobs = ingest.NewManager(p.Ingest, cfg.Ingest.JobTimeout(), logger)
	p.Chat = chat.NewService(c.Repo, client, cfg.Chat, logger)
	return p
}

// New opens storage and every configured external capability. Only a
// storage failure is fatal. Missing credentials disable their capability
// and are logged once.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ParliQ, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	repo, err := repository.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	closers := []func() error{repo.Close}

	comps := Components{Repo: repo}

	client, err := llm.NewClient(ctx, cfg.LLM)
	switch {
	case err == nil:
		comps.LLM = client
		if g, ok := client.(*llm.GeminiClient); ok {
			closers = append(closers, g.Close)
		}
		logger.Info("LLM enabled", zap.String("provider", cfg.LLM.Provider), zap.String("model", cfg.LLM.Model))
	case errors.Is(err, apperrors.ErrNotConfigured):
		logger.Warn("LLM disabled: no API key, chat answers are extractive and extraction uses patterns",
			zap.String("provider", cfg.LLM.Provider))
	default:
		logger.Error("LLM disabled", zap.Error(err))
	}

	yc, err := youtube.NewClient(ctx, cfg.YouTube, logger)
	switch {
	case err == nil:
		comps.YouTube = yc
	case errors.Is(err, apperrors.ErrNotConfigured):
		logger.Warn("YouTube Data API disabled: placeholder metadata is used and channel ingestion is unavailable")
	default:
		logger.Error("YouTube Data API disabled", zap.Error(err))
	}

	rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, transcript cache is in-process only", zap.Error(err))
		rdb = nil
	}
	comps.Cache = cache.New(rdb, cfg.Redis.TTL(), cache.DefaultMaxEntries, logger)
	closers = append(closers, comps.Cache.Close)

	if cfg.Graph.Enabled {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, logger)
		if err != nil {
			logger.Warn("graph mirror disabled", zap.String("uri", cfg.Graph.URI), zap.Error(err))
		} else {
			comps.Driver = d
			closers = append(closers, func() error { return d.Close(context.Background()) })
		}
	}

	p := NewParliQ(comps, cfg, logger)
	p.closers = closers
	if p.Mirror != nil {
		if err := p.Mirror.BuildIndices(ctx); err != nil {
			logger.Warn("failed to build graph indices", zap.Error(err))
		}
	}
	return p, nil
}

// Search runs a keyword search over every stored transcript.
func (p *ParliQ) Search(ctx context.Context, query string, limit int) ([]model.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", apperrors.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	videos, err := p.Repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcripts: %w", err)
	}
	hits := search.Search(query, videos, limit)
	if hits == nil {
		hits = []model.SearchHit{}
	}
	return hits, nil
}

func (p *ParliQ) Stats(ctx context.Context) (model.KnowledgeGraphStats, error) {
	videos, err := p.Repo.All(ctx)
	if err != nil {
		return model.KnowledgeGraphStats{}, fmt.Errorf("failed to load videos: %w", err)
	}
	return stats.Compute(videos, p.now().UTC()), nil
}

func (p *ParliQ) Status(ctx context.Context) (repository.Counts, error) {
	return p.Repo.Counts(ctx)
}

func (p *ParliQ) Export(ctx context.Context) (export.Document, error) {
	return p.Exporter.Export(ctx, p.now().UTC())
}

// DeleteVideo removes a video from storage. The graph copy is dropped on a
// best-effort basis.
func (p *ParliQ) DeleteVideo(ctx context.Context, id string) error {
	if err := p.Repo.DeleteVideo(ctx, id); err != nil {
		return err
	}
	if p.Mirror != nil {
		if err := p.Mirror.Remove(ctx, id); err != nil {
			p.logger.Warn("failed to remove video from graph", zap.String("video_id", id), zap.Error(err))
		}
	}
	return nil
}

// Close stops running jobs and releases every connection.
func (p *ParliQ) Close() error {
	p.Jobs.Shutdown()
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
