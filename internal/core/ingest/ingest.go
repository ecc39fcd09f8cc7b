package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/cache"
	"github.com/KMMOrganisation/ParliQ/internal/config"
	"github.com/KMMOrganisation/ParliQ/internal/core/extraction"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
	"github.com/KMMOrganisation/ParliQ/internal/core/rdf"
	"github.com/KMMOrganisation/ParliQ/internal/core/transcript"
	"github.com/KMMOrganisation/ParliQ/internal/repository"
	"github.com/KMMOrganisation/ParliQ/internal/youtube"
)

type Stage string

const (
	StageQueued        Stage = "queued"
	StageFetching      Stage = "fetching"
	StageTranscribing  Stage = "transcribing"
	StageExtracting    Stage = "extracting"
	StageGeneratingRDF Stage = "generating_rdf"
	StageComplete      Stage = "complete"
	StageError         Stage = "error"
	StageCancelled     Stage = "cancelled"
)

// Terminal reports whether no further progress can follow.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError || s == StageCancelled
}

type Progress struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

type ProgressFunc func(Progress)

type Options struct {
	// SRT, when set, replaces the fetched transcript.
	SRT       string       `json:"srt,omitempty"`
	Since     time.Time    `json:"since,omitempty"`
	MaxVideos int          `json:"max_videos,omitempty"`
	Progress  ProgressFunc `json:"-"`
}

func (o Options) report(stage Stage, percent int, format string, args ...any) {
	if o.Progress != nil {
		o.Progress(Progress{Stage: stage, Percent: percent, Message: fmt.Sprintf(format, args...)})
	}
}

type Result struct {
	Video    model.Video `json:"video"`
	Segments int         `json:"segments"`
	Entities int         `json:"entities"`
	Triples  int         `json:"triples"`
	Strategy string      `json:"strategy"`
	Warnings []string    `json:"warnings,omitempty"`
}

type Failed struct {
	VideoID string `json:"video_id"`
	Reason  string `json:"reason"`
}

type ChannelResult struct {
	ChannelID    string   `json:"channel_id"`
	ChannelTitle string   `json:"channel_title"`
	Ingested     []Result `json:"ingested"`
	Failed       []Failed `json:"failed"`
}

type MetadataSource interface {
	FetchVideo(ctx context.Context, id string) (model.Video, error)
}

type ChannelSource interface {
	ResolveChannel(ctx context.Context, ref youtube.ChannelRef) (youtube.Channel, error)
	ListChannelVideos(ctx context.Context, channelID string, since time.Time, limit int) ([]string, error)
}

type TranscriptSource interface {
	Fetch(ctx context.Context, videoID string) ([]model.Segment, error)
}

type Extractor interface {
	Extract(ctx context.Context, video model.Video, segments []model.Segment) extraction.Result
}

type Mirror interface {
	Mirror(ctx context.Context, v model.IngestedVideo) error
}

// Deps are the collaborators of a Service. Metadata, Channels, Cache and
// Mirror are optional.
type Deps struct {
	Repo        repository.Repository
	Extractor   Extractor
	Transcripts TranscriptSource
	Metadata    MetadataSource
	Channels    ChannelSource
	Cache       cache.TranscriptCache
	Mirror      Mirror
}

type Service struct {
	Deps
	cfg    config.IngestConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewService(deps Deps, cfg config.IngestConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Service{Deps: deps, cfg: cfg, logger: logger.Named("ingest"), now: time.Now}
}

// IngestVideo runs the full pipeline for one video and replaces whatever
// was stored for it before.
func (s *Service) IngestVideo(ctx context.Context, input string, opts Options) (Result, error) {
	id, err := youtube.ParseVideoID(input)
	if err != nil {
		return Result{}, err
	}
	var res Result
	log := s.logger.With(zap.String("video_id", id))

	opts.report(StageFetching, 10, "Fetching video metadata")
	video, warning, err := s.metadata(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if warning != "" {
		log.Warn("using placeholder metadata", zap.String("reason", warning))
		res.Warnings = append(res.Warnings, warning)
	}

	opts.report(StageTranscribing, 30, "Loading transcript")
	segments, err := s.transcript(ctx, id, opts.SRT)
	if err != nil {
		return Result{}, err
	}
	if video.Duration == 0 && len(segments) > 0 {
		video.Duration = int(math.Ceil(segments[len(segments)-1].End))
	}

	opts.report(StageExtracting, 60, "Extracting entities from %d segments", len(segments))
	extracted := s.Extractor.Extract(ctx, video, segments)
	if extracted.Strategy == "" {
		res.Warnings = append(res.Warnings, "entity extraction produced no result")
	}

	opts.report(StageGeneratingRDF, 80, "Generating knowledge graph")
	video.IngestedAt = s.now().UTC()
	iv := model.IngestedVideo{Video: video, Segments: segments, Entities: extracted.Entities}
	triples := rdf.BuildGraph([]model.IngestedVideo{iv}).Len()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := s.Repo.SaveVideo(ctx, iv); err != nil {
		return Result{}, fmt.Errorf("failed to save video %s: %w", id, err)
	}

	if s.Mirror != nil {
		if err := s.Mirror.Mirror(ctx, iv); err != nil {
			log.Warn("graph mirror failed", zap.Error(err))
			res.Warnings = append(res.Warnings, "graph mirror failed: "+err.Error())
		}
	}

	res.Video = video
	res.Segments = len(segments)
	res.Entities = len(extracted.Entities)
	res.Triples = triples
	res.Strategy = extracted.Strategy
	opts.report(StageComplete, 100, "Ingested %d segments and %d entities", res.Segments, res.Entities)

	log.Info("video ingested",
		zap.Int("segments", res.Segments),
		zap.Int("entities", res.Entities),
		zap.Int("triples", res.Triples),
		zap.String("strategy", res.Strategy))
	return res, nil
}

// metadata falls back to placeholder values when the Data API is
// unavailable. Cancellation and an unknown video are returned as errors.
func (s *Service) metadata(ctx context.Context, id string) (model.Video, string, error) {
	if s.Metadata == nil {
		return youtube.PlaceholderVideo(id), "YouTube Data API key not configured", nil
	}
	video, err := s.Metadata.FetchVideo(ctx, id)
	if err == nil {
		return video, "", nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.Video{}, "", ctxErr
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return model.Video{}, "", err
	}
	return youtube.PlaceholderVideo(id), "metadata unavailable: " + err.Error(), nil
}

func (s *Service) transcript(ctx context.Context, id, srt string) ([]model.Segment, error) {
	var raw []model.Segment
	switch {
	case srt != "":
		raw = transcript.ParseSRT(srt)
	default:
		if s.Cache != nil {
			if cached, ok := s.Cache.Get(ctx, id); ok {
				raw = cached
				break
			}
		}
		if s.Transcripts == nil {
			return nil, fmt.Errorf("transcript source: %w", apperrors.ErrNotConfigured)
		}
		fetched, err := s.Transcripts.Fetch(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch transcript for %s: %w", id, err)
		}
		raw = fetched
		if s.Cache != nil && len(fetched) > 0 {
			s.Cache.Set(ctx, id, fetched)
		}
	}

	segments := transcript.Normalize(id, raw)
	if s.cfg.MergeSentences {
		segments = transcript.Normalize(id, transcript.MergeSentences(segments, s.cfg.MaxSentenceSpan))
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("video %s: %w", id, apperrors.ErrNoTranscript)
	}
	return segments, nil
}

// IngestChannel ingests a channel's recent videos concurrently. A failed
// video is recorded and does not stop the others.
func (s *Service) IngestChannel(ctx context.Context, input string, opts Options) (ChannelResult, error) {
	ref, err := youtube.ParseChannelRef(input)
	if err != nil {
		return ChannelResult{}, err
	}
	if s.Channels == nil {
		return ChannelResult{}, fmt.Errorf("channel ingestion needs the YouTube Data API: %w", apperrors.ErrNotConfigured)
	}

	opts.report(StageFetching, 5, "Resolving channel %s", ref)
	ch, err := s.Channels.ResolveChannel(ctx, ref)
	if err != nil {
		return ChannelResult{}, err
	}

	limit := opts.MaxVideos
	if limit <= 0 {
		limit = s.cfg.MaxChannelVideos
	}
	ids, err := s.Channels.ListChannelVideos(ctx, ch.ID, opts.Since, limit)
	if err != nil {
		return ChannelResult{}, err
	}
	s.logger.Info("ingesting channel",
		zap.String("channel_id", ch.ID),
		zap.Int("videos", len(ids)),
		zap.Int("concurrency", s.cfg.Concurrency))

	results := make([]*Result, len(ids))
	var (
		mu     sync.Mutex
		failed []Failed
		done   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			r, err := s.IngestVideo(gctx, id, Options{})

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				s.logger.Warn("channel video failed", zap.String("video_id", id), zap.Error(err))
				failed = append(failed, Failed{VideoID: id, Reason: err.Error()})
			} else {
				results[i] = &r
			}
			opts.report(StageExtracting, 10+done*85/len(ids), "Processed %d of %d videos", done, len(ids))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return ChannelResult{}, err
	}

	out := ChannelResult{ChannelID: ch.ID, ChannelTitle: ch.Title, Ingested: []Result{}, Failed: failed}
	for _, r := range results {
		if r != nil {
			out.Ingested = append(out.Ingested, *r)
		}
	}
	if out.Failed == nil {
		out.Failed = []Failed{}
	}
	opts.report(StageComplete, 100, "Ingested %d of %d videos", len(out.Ingested), len(ids))
	return out, nil
}
