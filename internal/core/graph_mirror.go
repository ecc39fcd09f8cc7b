package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
	"github.com/KMMOrganisation/ParliQ/internal/driver"
)

// GraphMirror copies ingested videos into a property graph so they can be
// explored with Cypher. The relational repository stays the source of truth.
type GraphMirror struct {
	Driver driver.GraphDriver
	logger *zap.Logger
}

func NewGraphMirror(d driver.GraphDriver, logger *zap.Logger) *GraphMirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphMirror{Driver: d, logger: logger.Named("graph")}
}

func (g *GraphMirror) BuildIndices(ctx context.Context) error {
	return g.Driver.BuildIndices(ctx)
}

// Mirror replaces the graph copy of one video.
func (g *GraphMirror) Mirror(ctx context.Context, v model.IngestedVideo) error {
	vid := v.Video
	channelID := vid.ChannelID
	if channelID == "" {
		channelID = "unknown"
	}

	params := map[string]any{
		"id":            vid.ID,
		"title":         vid.Title,
		"description":   vid.Description,
		"url":           vid.URL,
		"thumbnail_url": vid.ThumbnailURL,
		"duration":      int64(vid.Duration),
		"published_at":  vid.PublishedAt.UTC().Format(time.RFC3339),
		"ingested_at":   vid.IngestedAt.UTC().Format(time.RFC3339),
		"channel_id":    channelID,
		"channel":       vid.Channel,
	}
	if _, err := g.Driver.ExecuteQuery(ctx, driver.SaveVideoQuery, params); err != nil {
		return fmt.Errorf("failed to mirror video %s: %w", vid.ID, err)
	}

	if _, err := g.Driver.ExecuteQuery(ctx, driver.ClearVideoChildrenQuery, map[string]any{"id": vid.ID}); err != nil {
		return fmt.Errorf("failed to clear graph children of %s: %w", vid.ID, err)
	}

	if len(v.Segments) > 0 {
		rows := make([]map[string]any, 0, len(v.Segments))
		for _, s := range v.Segments {
			rows = append(rows, map[string]any{
				"sequence":   int64(s.Sequence),
				"text":       s.Text,
				"start_time": s.Start,
				"end_time":   s.End,
			})
		}
		if _, err := g.Driver.ExecuteQuery(ctx, driver.SaveSegmentsQuery, map[string]any{"id": vid.ID, "segments": rows}); err != nil {
			return fmt.Errorf("failed to mirror segments of %s: %w", vid.ID, err)
		}
	}

	if len(v.Entities) > 0 {
		rows := make([]map[string]any, 0, len(v.Entities))
		for _, e := range v.Entities {
			rows = append(rows, map[string]any{
				"sequence":   int64(e.Sequence),
				"type":       string(e.Type),
				"text":       e.Text,
				"start_time": e.Start,
				"end_time":   e.End,
				"confidence": e.Confidence,
			})
		}
		if _, err := g.Driver.ExecuteQuery(ctx, driver.SaveEntitiesQuery, map[string]any{"id": vid.ID, "entities": rows}); err != nil {
			return fmt.Errorf("failed to mirror entities of %s: %w", vid.ID, err)
		}
	}

	g.logger.Debug("mirrored video",
		zap.String("video_id", vid.ID),
		zap.Int("segments", len(v.Segments)),
		zap.Int("entities", len(v.Entities)))
	return nil
}

func (g *GraphMirror) Remove(ctx context.Context, videoID string) error {
	if _, err := g.Driver.ExecuteQuery(ctx, driver.DeleteVideoQuery, map[string]any{"id": videoID}); err != nil {
		return fmt.Errorf("failed to remove video %s from graph: %w", videoID, err)
	}
	return nil
}
