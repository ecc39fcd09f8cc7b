package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/core/common"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
	"github.com/KMMOrganisation/ParliQ/internal/llm"
)

const (
	LLMStrategy = "llm"

	maxTranscriptChars = 8000
	defaultConfidence  = 0.5
)

// DefaultPrompt takes the video title and the rendered transcript.
const DefaultPrompt = `You are extracting political entities from a UK parliamentary video transcript.

Video: %s

Return ONLY a JSON array. Each element must have:
- "type": one of Person, Party, Policy, Location, Event, Quote
- "text": the entity as it appears in the transcript
- "startTime": start time in seconds (number)
- "endTime": end time in seconds (number)
- "confidence": a number between 0 and 1
- "context": the sentence the entity appears in

Transcript lines are formatted as [start-end] text:
%s`

var errNoEntities = errors.New("reply contained no valid entities")

// LLMExtractor asks a generative model for entities and validates its reply.
// A positive Timeout bounds each Generate call.
type LLMExtractor struct {
	LLM     llm.LLMClient
	Prompt  string
	Timeout time.Duration
}

func NewLLMExtractor(client llm.LLMClient, prompt string, timeout time.Duration) *LLMExtractor {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &LLMExtractor{LLM: client, Prompt: prompt, Timeout: timeout}
}

func (e *LLMExtractor) Name() string { return LLMStrategy }

func (e *LLMExtractor) Extract(ctx context.Context, video model.Video, segments []model.Segment) ([]model.Entity, error) {
	if e.LLM == nil {
		return nil, fmt.Errorf("llm extraction: %w", apperrors.ErrNotConfigured)
	}
	if len(segments) == 0 {
		return nil, apperrors.ErrNoTranscript
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(e.Prompt, video.Title, RenderTranscript(segments, maxTranscriptChars))
	reply, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entities: %w", err)
	}

	return ParseEntities(reply, segments)
}

// RenderTranscript formats segments as timed lines, cut at limit bytes on a
// rune boundary.
func RenderTranscript(segments []model.Segment, limit int) string {
	var b strings.Builder
	for _, s := range segments {
		line := fmt.Sprintf("[%.1f-%.1f] %s\n", s.Start, s.End, s.Text)
		if b.Len()+len(line) > limit {
			rest := limit - b.Len()
			for rest > 0 && !utf8.RuneStart(line[rest]) {
				rest--
			}
			b.WriteString(line[:rest])
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

// ParseEntities validates a model reply against the entity shape. Items
// missing a required field are dropped. Confidence is clamped to [0,1] and
// times to the transcript bounds.
func ParseEntities(reply string, segments []model.Segment) ([]model.Entity, error) {
	raw, err := common.FindJSON(reply)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extraction reply: %w", err)
	}

	doc := gjson.Parse(raw)
	if doc.IsObject() {
		doc = doc.Get("entities")
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("extraction reply is not an array")
	}

	lo, hi := bounds(segments)
	entities := []model.Entity{}
	doc.ForEach(func(_, item gjson.Result) bool {
		ent, ok := parseEntity(item, lo, hi)
		if ok {
			entities = append(entities, ent)
		}
		return true
	})

	if len(entities) == 0 {
		return nil, errNoEntities
	}
	return entities, nil
}

func parseEntity(item gjson.Result, lo, hi float64) (model.Entity, bool) {
	if !item.IsObject() {
		return model.Entity{}, false
	}
	typ := item.Get("type")
	text := item.Get("text")
	start := item.Get("startTime")
	end := item.Get("endTime")
	if typ.Type != gjson.String || text.Type != gjson.String ||
		start.Type != gjson.Number || end.Type != gjson.Number {
		return model.Entity{}, false
	}

	entityType, err := model.ParseEntityType(typ.String())
	if err != nil {
		return model.Entity{}, false
	}
	label := strings.TrimSpace(text.String())
	if label == "" {
		return model.Entity{}, false
	}

	confidence := defaultConfidence
	if c := item.Get("confidence"); c.Type == gjson.Number {
		confidence = clamp(c.Float(), 0, 1)
	}

	s := clamp(start.Float(), lo, hi)
	e := clamp(end.Float(), lo, hi)
	if e < s {
		e = s
	}

	return model.Entity{
		Type:       entityType,
		Text:       label,
		Start:      s,
		End:        e,
		Confidence: confidence,
		Context:    item.Get("context").String(),
	}, true
}

func bounds(segments []model.Segment) (float64, float64) {
	if len(segments) == 0 {
		return 0, 0
	}
	lo, hi := segments[0].Start, segments[0].End
	for _, s := range segments[1:] {
		if s.Start < lo {
			lo = s.Start
		}
		if s.End > hi {
			hi = s.End
		}
	}
	return lo, hi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
