package repository

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/config"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

// Repository persists ingested videos. SaveVideo replaces everything known
// about a video id in one step.
type Repository interface {
	SaveVideo(ctx context.Context, v model.IngestedVideo) error
	GetVideo(ctx context.Context, id string) (model.IngestedVideo, error)
	// ListVideos returns videos in ingestion order.
	ListVideos(ctx context.Context) ([]model.Video, error)
	All(ctx context.Context) ([]model.IngestedVideo, error)
	// Transcript returns segments ordered by sequence.
	Transcript(ctx context.Context, id string) ([]model.Segment, error)
	// Entities returns entities ordered by start time, then sequence.
	Entities(ctx context.Context, id string) ([]model.Entity, error)
	DeleteVideo(ctx context.Context, id string) error
	Counts(ctx context.Context) (Counts, error)
	Close() error
}

type Counts struct {
	Videos   int `json:"videos"`
	Segments int `json:"segments"`
	Entities int `json:"entities"`
}

// Open selects the implementation named by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Repository, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(ctx, cfg.SQLitePath)
	case "postgres":
		return NewPostgres(ctx, cfg.PostgresURL, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSegment(row scanner) (model.Segment, error) {
	var s model.Segment
	err := row.Scan(&s.VideoID, &s.Sequence, &s.Text, &s.Start, &s.End)
	return s, err
}

func scanEntity(row scanner) (model.Entity, error) {
	var e model.Entity
	var typ string
	if err := row.Scan(&e.VideoID, &e.Sequence, &typ, &e.Text, &e.Start, &e.End, &e.Confidence, &e.Context); err != nil {
		return e, err
	}
	e.Type = model.EntityType(typ)
	return e, nil
}

func sortSegments(segs []model.Segment) {
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Sequence < segs[j].Sequence })
}

func sortEntities(ents []model.Entity) {
	sort.SliceStable(ents, func(i, j int) bool {
		if ents[i].Start != ents[j].Start {
			return ents[i].Start < ents[j].Start
		}
		return ents[i].Sequence < ents[j].Sequence
	})
}

// assemble groups child rows under their videos, preserving video order.
func assemble(videos []model.Video, segs []model.Segment, ents []model.Entity) []model.IngestedVideo {
	bySeg := make(map[string][]model.Segment, len(videos))
	for _, s := range segs {
		bySeg[s.VideoID] = append(bySeg[s.VideoID], s)
	}
	byEnt := make(map[string][]model.Entity, len(videos))
	for _, e := range ents {
		byEnt[e.VideoID] = append(byEnt[e.VideoID], e)
	}

	out := make([]model.IngestedVideo, 0, len(videos))
	for _, v := range videos {
		out = append(out, model.IngestedVideo{
			Video:    v,
			Segments: bySeg[v.ID],
			Entities: byEnt[v.ID],
		})
	}
	return out
}
