package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/config"
	"github.com/KMMOrganisation/ParliQ/internal/core/guardrail"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

type fakeVideos struct {
	videos []model.IngestedVideo
	err    error
	calls  int
}

func (f *fakeVideos) All(ctx context.Context) ([]model.IngestedVideo, error) {
	f.calls++
	return f.videos, f.err
}

type MockLLM struct {
	Response string
	Err      error
	Prompts  []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func library() []model.IngestedVideo {
	v := model.IngestedVideo{
		Video: model.Video{ID: "vid1", Title: "NHS Debate", Channel: "UK Parliament", URL: model.WatchURL("vid1")},
	}
	texts := []string{
		"The NHS funding bill was debated today",
		"Members discussed NHS waiting lists",
		"Funding for schools was raised",
		"The NHS needs more funding",
		"Order, order",
	}
	for i, text := range texts {
		v.Segments = append(v.Segments, model.Segment{VideoID: "vid1", Sequence: i, Text: text, Start: float64(65 * i), End: float64(65*i + 5)})
	}
	return []model.IngestedVideo{v}
}

func newService(videos *fakeVideos, client *MockLLM) *Service {
	var s *Service
	if client == nil {
		s = NewService(videos, nil, config.ChatConfig{TimeoutSeconds: 5, HistoryTurns: 2}, zap.NewNop())
	} else {
		s = NewService(videos, client, config.ChatConfig{TimeoutSeconds: 5, HistoryTurns: 2}, zap.NewNop())
	}
	s.now = func() time.Time { return time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestRespond_EmptyMessage(t *testing.T) {
	videos := &fakeVideos{videos: library()}
	_, err := newService(videos, nil).Respond(context.Background(), model.ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Zero(t, videos.calls)
}

func TestRespond_Guardrail(t *testing.T) {
	videos := &fakeVideos{videos: library()}
	client := &MockLLM{Response: "should not be used"}

	resp, err := newService(videos, client).Respond(context.Background(), model.ChatRequest{Message: "Who should I vote for?"})
	require.NoError(t, err)

	assert.True(t, resp.IsGuardrailResponse)
	assert.Equal(t, guardrail.Message, resp.Content)
	assert.Empty(t, resp.Citations)
	assert.Empty(t, resp.FollowUps)
	assert.Len(t, resp.Resources, 4)
	assert.Zero(t, videos.calls)
	assert.Empty(t, client.Prompts)
}

func TestRespond_WithLLM(t *testing.T) {
	videos := &fakeVideos{videos: library()}
	client := &MockLLM{Response: "  MPs from Labour and the Conservative party debated NHS funding.  "}
	history := []model.ChatMessage{
		{Role: "user", Content: "oldest turn"},
		{Role: "assistant", Content: "middle turn"},
		{Role: "user", Content: "latest turn"},
	}

	resp, err := newService(videos, client).Respond(context.Background(), model.ChatRequest{Message: "NHS funding", History: history})
	require.NoError(t, err)

	assert.Equal(t, "MPs from Labour and the Conservative party debated NHS funding.", resp.Content)
	assert.Equal(t, model.RoleAssistant, resp.Role)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC), resp.Timestamp)
	assert.False(t, resp.IsGuardrailResponse)

	require.Len(t, resp.Citations, 3)
	assert.Equal(t, "The NHS funding bill was debated today", resp.Citations[0].Text)
	assert.Equal(t, 0, resp.Citations[0].Timestamp)
	assert.Equal(t, "https://www.youtube.com/watch?v=vid1&t=0s", resp.Citations[0].URL)

	labels := make([]string, 0, len(resp.FollowUps))
	for _, f := range resp.FollowUps {
		labels = append(labels, f.Label)
	}
	assert.Contains(t, labels, "NHS funding debates")
	assert.Contains(t, labels, "Cross-party views")
	assert.LessOrEqual(t, len(resp.FollowUps), 5)

	require.Len(t, client.Prompts, 1)
	prompt := client.Prompts[0]
	assert.True(t, strings.HasPrefix(prompt, DefaultSystemPrompt))
	assert.Contains(t, prompt, `[NHS Debate @ 00:00] "The NHS funding bill was debated today"`)
	assert.Contains(t, prompt, "User question: NHS funding")
	assert.NotContains(t, prompt, "oldest turn")
	assert.Contains(t, prompt, "assistant: middle turn")
	assert.Contains(t, prompt, "user: latest turn")
}

func TestRespond_LLMFailure(t *testing.T) {
	client := &MockLLM{Err: errors.New("upstream 500")}
	resp, err := newService(&fakeVideos{videos: library()}, client).Respond(context.Background(), model.ChatRequest{Message: "NHS funding"})
	require.NoError(t, err)
	assert.Equal(t, ApologyText, resp.Content)
	assert.NotEmpty(t, resp.Citations)

	client = &MockLLM{Response: " "}
	resp, err = newService(&fakeVideos{videos: library()}, client).Respond(context.Background(), model.ChatRequest{Message: "NHS funding"})
	require.NoError(t, err)
	assert.Equal(t, EmptyReplyText, resp.Content)
}

func TestRespond_WithoutLLM(t *testing.T) {
	resp, err := newService(&fakeVideos{videos: library()}, nil).Respond(context.Background(), model.ChatRequest{Message: "NHS waiting lists"})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, `"Members discussed NHS waiting lists" (NHS Debate, 01:05)`)
	assert.NotEmpty(t, resp.FollowUps)

	resp, err = newService(&fakeVideos{}, nil).Respond(context.Background(), model.ChatRequest{Message: "fisheries quotas"})
	require.NoError(t, err)
	assert.Equal(t, NoCoverageText, resp.Content)
	assert.Empty(t, resp.Citations)
}

func TestRespond_RepositoryError(t *testing.T) {
	_, err := newService(&fakeVideos{err: errors.New("db down")}, nil).Respond(context.Background(), model.ChatRequest{Message: "NHS"})
	assert.Error(t, err)
}

func TestBuildPrompt_CapsExcerpts(t *testing.T) {
	var hits []model.SearchHit
	for i := 0; i < 15; i++ {
		hits = append(hits, model.SearchHit{Title: fmt.Sprintf("T%d", i), Segment: model.Segment{Text: "x"}})
	}
	prompt := BuildPrompt("sys", "q", nil, hits, 6)
	assert.Equal(t, 10, strings.Count(prompt, "[T"))
	assert.NotContains(t, prompt, "Previous conversation")
}

func TestTimestamp(t *testing.T) {
	assert.Equal(t, "00:00", Timestamp(0))
	assert.Equal(t, "01:05", Timestamp(65.9))
	assert.Equal(t, "1:02:03", Timestamp(3723))
	assert.Equal(t, "00:00", Timestamp(-3))
}
