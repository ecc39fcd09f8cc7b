package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

// Memory keeps everything in process. Values are copied in and out so
// callers never share slices with the store.
type Memory struct {
	mu     sync.RWMutex
	videos map[string]model.IngestedVideo
	order  []string
}

func NewMemory() *Memory {
	return &Memory{videos: make(map[string]model.IngestedVideo)}
}

var _ Repository = (*Memory)(nil)

func (m *Memory) SaveVideo(ctx context.Context, v model.IngestedVideo) error {
	if v.Video.ID == "" {
		return fmt.Errorf("video id is required: %w", apperrors.ErrInvalidInput)
	}
	v = clone(v)
	sortSegments(v.Segments)
	sortEntities(v.Entities)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.videos[v.Video.ID]; !ok {
		m.order = append(m.order, v.Video.ID)
	}
	m.videos[v.Video.ID] = v
	return nil
}

func (m *Memory) GetVideo(ctx context.Context, id string) (model.IngestedVideo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.videos[id]
	if !ok {
		return model.IngestedVideo{}, fmt.Errorf("video %s: %w", id, apperrors.ErrNotFound)
	}
	return clone(v), nil
}

func (m *Memory) ListVideos(ctx context.Context) ([]model.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Video, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.videos[id].Video)
	}
	return out, nil
}

func (m *Memory) All(ctx context.Context) ([]model.IngestedVideo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.IngestedVideo, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, clone(m.videos[id]))
	}
	return out, nil
}

func (m *Memory) Transcript(ctx context.Context, id string) ([]model.Segment, error) {
	v, err := m.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	return v.Segments, nil
}

func (m *Memory) Entities(ctx context.Context, id string) ([]model.Entity, error) {
	v, err := m.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	return v.Entities, nil
}

func (m *Memory) DeleteVideo(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.videos[id]; !ok {
		return fmt.Errorf("video %s: %w", id, apperrors.ErrNotFound)
	}
	delete(m.videos, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Counts(ctx context.Context) (Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := Counts{Videos: len(m.videos)}
	for _, v := range m.videos {
		c.Segments += len(v.Segments)
		c.Entities += len(v.Entities)
	}
	return c, nil
}

func (m *Memory) Close() error {
	return nil
}

func clone(v model.IngestedVideo) model.IngestedVideo {
	out := model.IngestedVideo{Video: v.Video}
	if v.Segments != nil {
		out.Segments = append([]model.Segment(nil), v.Segments...)
	}
	if v.Entities != nil {
		out.Entities = append([]model.Entity(nil), v.Entities...)
	}
	return out
}
