package extraction

import (
	"context"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

type MockLLMClient struct {
	Response string
	Err      error
	Prompts  []string
	// Block makes Generate wait for ctx to end.
	Block bool
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

type MockStrategy struct {
	StrategyName string
	Entities     []model.Entity
	Err          error
	Calls        int
}

func (m *MockStrategy) Name() string { return m.StrategyName }

func (m *MockStrategy) Extract(ctx context.Context, video model.Video, segments []model.Segment) ([]model.Entity, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Entities, nil
}
