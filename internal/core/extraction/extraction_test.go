package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

var testVideo = model.Video{ID: "vid1", Title: "Health Questions"}

func findEntity(entities []model.Entity, typ model.EntityType, contains string) (model.Entity, bool) {
	for _, e := range entities {
		if e.Type == typ && strings.Contains(e.Text, contains) {
			return e, true
		}
	}
	return model.Entity{}, false
}

func TestPatternExtractor_PersonAndPolicy(t *testing.T) {
	segments := []model.Segment{
		{Sequence: 0, Text: "Mr Smith welcomed the NHS funding Bill", Start: 10.0, End: 14.0},
	}

	entities, err := NewPatternExtractor().Extract(context.Background(), testVideo, segments)
	require.NoError(t, err)

	person, ok := findEntity(entities, model.EntityPerson, "Mr Smith")
	require.True(t, ok)
	assert.Equal(t, "Mr Smith", person.Text)
	assert.Equal(t, 10.0, person.Start)
	assert.Equal(t, 14.0, person.End)
	assert.Equal(t, segments[0].Text, person.Context)

	policy, ok := findEntity(entities, model.EntityPolicy, "Bill")
	require.True(t, ok)
	assert.Equal(t, "NHS funding Bill", policy.Text)
	assert.Equal(t, 10.0, policy.Start)
	assert.Equal(t, 14.0, policy.End)

	for _, e := range entities {
		assert.GreaterOrEqual(t, e.Confidence, 0.7)
		assert.LessOrEqual(t, e.Confidence, 0.9)
	}
}

func TestPatternExtractor_Categories(t *testing.T) {
	segments := []model.Segment{
		{Text: "Labour and the Tories clashed at PMQs", Start: 0, End: 5},
		{Text: "The Prime Minister Rishi Sunak visited Manchester and Scotland", Start: 5, End: 9},
		{Text: "Residents of Hackney borough raised the Online Safety Act", Start: 9, End: 12},
		{Text: "Nothing of note here", Start: 12, End: 15},
	}

	entities, err := NewPatternExtractor().Extract(context.Background(), testVideo, segments)
	require.NoError(t, err)

	checks := []struct {
		typ  model.EntityType
		text string
	}{
		{model.EntityParty, "Labour"},
		{model.EntityParty, "Tories"},
		{model.EntityEvent, "PMQs"},
		{model.EntityPerson, "Prime Minister Rishi Sunak"},
		{model.EntityPerson, "Rishi Sunak"},
		{model.EntityLocation, "Manchester"},
		{model.EntityLocation, "Scotland"},
		{model.EntityLocation, "Hackney borough"},
		{model.EntityPolicy, "Online Safety Act"},
	}
	for _, c := range checks {
		_, ok := findEntity(entities, c.typ, c.text)
		assert.True(t, ok, "missing %s %q", c.typ, c.text)
	}

	for _, e := range entities {
		assert.NotEqual(t, "Nothing of note here", e.Context)
	}
}

func TestPatternExtractor_NoDeduplication(t *testing.T) {
	segments := []model.Segment{
		{Text: "Brexit again", Start: 0, End: 2},
		{Text: "and Brexit once more", Start: 2, End: 4},
	}

	entities, err := NewPatternExtractor().Extract(context.Background(), testVideo, segments)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, 0.0, entities[0].Start)
	assert.Equal(t, 2.0, entities[1].Start)
	assert.Equal(t, 0, entities[0].Sequence)
	assert.Equal(t, 1, entities[1].Sequence)
}

func TestLLMExtractor_ValidReply(t *testing.T) {
	mockLLM := &MockLLMClient{
		Response: "```json\n" + `[
			{"type": "Person", "text": "Keir Starmer", "startTime": 12, "endTime": 15, "confidence": 0.95, "context": "Keir Starmer said"},
			{"type": "policy", "text": "Net Zero", "startTime": -4, "endTime": 900, "confidence": 1.7},
			{"type": "Location", "text": "Leeds", "startTime": 20, "endTime": 5},
			{"type": "Weather", "text": "Rain", "startTime": 1, "endTime": 2},
			{"type": "Party", "text": "", "startTime": 1, "endTime": 2},
			{"type": "Event", "text": "Budget", "startTime": "10", "endTime": 12}
		]` + "\n```",
	}
	segments := []model.Segment{
		{Text: "Keir Starmer said", Start: 10, End: 16},
		{Text: "Net Zero targets in Leeds", Start: 16, End: 30},
	}

	entities, err := NewLLMExtractor(mockLLM, "", 0).Extract(context.Background(), testVideo, segments)
	require.NoError(t, err)
	require.Len(t, entities, 3)

	assert.Equal(t, model.EntityPerson, entities[0].Type)
	assert.Equal(t, 0.95, entities[0].Confidence)

	assert.Equal(t, model.EntityPolicy, entities[1].Type)
	assert.Equal(t, 1.0, entities[1].Confidence)
	assert.Equal(t, 10.0, entities[1].Start)
	assert.Equal(t, 30.0, entities[1].End)

	assert.Equal(t, 0.5, entities[2].Confidence)
	assert.Equal(t, 20.0, entities[2].Start)
	assert.Equal(t, 20.0, entities[2].End)

	require.Len(t, mockLLM.Prompts, 1)
	assert.Contains(t, mockLLM.Prompts[0], "[10.0-16.0] Keir Starmer said")
	assert.Contains(t, mockLLM.Prompts[0], "Health Questions")
}

func TestLLMExtractor_Failures(t *testing.T) {
	segments := []model.Segment{{Text: "x", Start: 0, End: 1}}

	tests := []struct {
		name string
		llm  *MockLLMClient
	}{
		{name: "service error", llm: &MockLLMClient{Err: errors.New("quota exceeded")}},
		{name: "not json", llm: &MockLLMClient{Response: "I could not find any entities."}},
		{name: "empty array", llm: &MockLLMClient{Response: "[]"}},
		{name: "all invalid", llm: &MockLLMClient{Response: `[{"type":"Person"}]`}},
		{name: "object without entities", llm: &MockLLMClient{Response: `{"result": "none"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMExtractor(tt.llm, "", 0).Extract(context.Background(), testVideo, segments)
			assert.Error(t, err)
		})
	}

	_, err := NewLLMExtractor(nil, "", 0).Extract(context.Background(), testVideo, segments)
	assert.ErrorIs(t, err, apperrors.ErrNotConfigured)
}

func TestParseEntities_WrappedObject(t *testing.T) {
	segments := []model.Segment{{Start: 0, End: 10}}
	entities, err := ParseEntities(`{"entities":[{"type":"Quote","text":"We will deliver","startTime":1,"endTime":3}]}`, segments)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, model.EntityQuote, entities[0].Type)
}

func TestRenderTranscript_Truncates(t *testing.T) {
	var segments []model.Segment
	for i := 0; i < 500; i++ {
		segments = append(segments, model.Segment{Text: "Débat sur le budget du Royaume-Uni", Start: float64(i), End: float64(i + 1)})
	}
	out := RenderTranscript(segments, maxTranscriptChars)
	assert.LessOrEqual(t, len(out), maxTranscriptChars)
	assert.True(t, strings.HasPrefix(out, "[0.0-1.0] Débat"))
	assert.True(t, utf8.ValidString(out))
}

func TestChain_FallsBackToPatterns(t *testing.T) {
	failing := &MockStrategy{StrategyName: LLMStrategy, Err: errors.New("bad json")}
	chain := NewChain(zap.NewNop(), failing, NewPatternExtractor())

	segments := []model.Segment{{Text: "Mr Smith welcomed the NHS funding Bill", Start: 10, End: 14}}
	res := chain.Extract(context.Background(), testVideo, segments)

	assert.Equal(t, 1, failing.Calls)
	assert.Equal(t, PatternStrategy, res.Strategy)
	assert.NotEmpty(t, res.Entities)
	for i, e := range res.Entities {
		assert.Equal(t, "vid1", e.VideoID)
		assert.Equal(t, i, e.Sequence)
	}
}

func TestChain_StalledLLMFallsBackToPatterns(t *testing.T) {
	stalled := &MockLLMClient{Block: true}
	chain := NewChain(zap.NewNop(), NewLLMExtractor(stalled, "", 50*time.Millisecond), NewPatternExtractor())

	segments := []model.Segment{{Text: "Mr Smith welcomed the NHS funding Bill", Start: 10, End: 14}}
	start := time.Now()
	res := chain.Extract(context.Background(), testVideo, segments)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, stalled.Prompts, 1)
	assert.Equal(t, PatternStrategy, res.Strategy)
	assert.NotEmpty(t, res.Entities)
}

func TestLLMExtractor_TimeoutError(t *testing.T) {
	_, err := NewLLMExtractor(&MockLLMClient{Block: true}, "", 20*time.Millisecond).
		Extract(context.Background(), testVideo, []model.Segment{{Text: "x", End: 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChain_FirstSuccessWins(t *testing.T) {
	first := &MockStrategy{StrategyName: "first", Entities: []model.Entity{{Type: model.EntityQuote, Text: "q"}}}
	second := &MockStrategy{StrategyName: "second"}
	res := NewChain(zap.NewNop(), first, second).Extract(context.Background(), testVideo, nil)

	assert.Equal(t, "first", res.Strategy)
	assert.Len(t, res.Entities, 1)
	assert.Equal(t, 0, second.Calls)
}

func TestChain_AllFail(t *testing.T) {
	chain := NewChain(zap.NewNop(),
		&MockStrategy{StrategyName: "a", Err: errors.New("a")},
		&MockStrategy{StrategyName: "b", Err: errors.New("b")},
	)
	res := chain.Extract(context.Background(), testVideo, nil)
	assert.NotNil(t, res.Entities)
	assert.Empty(t, res.Entities)
	assert.Empty(t, res.Strategy)
}
