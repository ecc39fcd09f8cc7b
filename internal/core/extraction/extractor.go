package extraction

import (
	"context"

	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

// Strategy extracts entities from a video's ordered segments.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, video model.Video, segments []model.Segment) ([]model.Entity, error)
}

// Result records which strategy produced the entities.
type Result struct {
	Entities []model.Entity `json:"entities"`
	Strategy string         `json:"strategy"`
}

// Chain tries strategies in order and commits the first success.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	return &Chain{
		strategies: strategies,
		logger:     logger.Named("extraction"),
	}
}

// Extract never fails. When every strategy fails the result is empty.
func (c *Chain) Extract(ctx context.Context, video model.Video, segments []model.Segment) Result {
	for _, s := range c.strategies {
		entities, err := s.Extract(ctx, video, segments)
		if err != nil {
			c.logger.Warn("extraction strategy failed, trying next",
				zap.String("strategy", s.Name()),
				zap.String("video_id", video.ID),
				zap.Error(err))
			continue
		}
		for i := range entities {
			entities[i].VideoID = video.ID
			entities[i].Sequence = i
		}
		return Result{Entities: entities, Strategy: s.Name()}
	}
	return Result{Entities: []model.Entity{}}
}
