package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/config"
	"github.com/KMMOrganisation/ParliQ/internal/core/followup"
	"github.com/KMMOrganisation/ParliQ/internal/core/guardrail"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
	"github.com/KMMOrganisation/ParliQ/internal/core/search"
	"github.com/KMMOrganisation/ParliQ/internal/llm"
)

const (
	ApologyText    = "I apologize, but I encountered an error while processing your question. Please try again."
	EmptyReplyText = "I apologize, but I could not generate a response at this time."
	NoCoverageText = "I couldn't find anything about that in the parliamentary debates ingested so far. " +
		"Try rephrasing your question, or ingest more videos covering the topic."

	MaxCitations = 3
)

const DefaultSystemPrompt = `You are ParliQ, an AI assistant that explains UK parliamentary discussions.

Based on the following parliamentary transcript excerpts, answer the user's question in a warm, educational tone.`

const instructions = `Instructions:
- Provide a helpful, accurate answer based on the transcript context
- Use a warm, teacher-like tone
- Reference specific quotes when relevant
- If the context doesn't contain relevant information, say so politely
- Keep responses concise but informative`

// VideoSource is the read side of the repository the chat needs.
type VideoSource interface {
	All(ctx context.Context) ([]model.IngestedVideo, error)
}

type Service struct {
	videos VideoSource
	llm    llm.LLMClient
	cfg    config.ChatConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds the chat service. client may be nil, in which case
// answers are assembled from the transcript excerpts directly.
func NewService(videos VideoSource, client llm.LLMClient, cfg config.ChatConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{videos: videos, llm: client, cfg: cfg, logger: logger.Named("chat"), now: time.Now}
}

func (s *Service) Respond(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return model.ChatResponse{}, fmt.Errorf("message is required: %w", apperrors.ErrInvalidInput)
	}

	resp := model.ChatResponse{
		ID:        uuid.New().String(),
		Role:      model.RoleAssistant,
		Timestamp: s.now().UTC(),
		Citations: []model.Citation{},
		FollowUps: []model.FollowUp{},
	}

	if d := guardrail.Classify(message); d.Blocked {
		s.logger.Info("guardrail triggered", zap.String("reason", string(d.Reason)))
		resp.Content, resp.Resources = guardrail.Response()
		resp.IsGuardrailResponse = true
		return resp, nil
	}

	videos, err := s.videos.All(ctx)
	if err != nil {
		return model.ChatResponse{}, fmt.Errorf("failed to load transcripts: %w", err)
	}
	hits := search.Search(message, videos, search.ChatLimit)

	switch {
	case s.llm == nil && len(hits) == 0:
		resp.Content = NoCoverageText
	case s.llm == nil:
		resp.Content = Extractive(hits)
	default:
		resp.Content = s.generate(ctx, message, req.History, hits)
	}

	for i, h := range hits {
		if i == MaxCitations {
			break
		}
		resp.Citations = append(resp.Citations, h.Citation())
	}
	resp.FollowUps = followup.Generate(message, resp.Content)
	return resp, nil
}

func (s *Service) generate(ctx context.Context, message string, history []model.ChatMessage, hits []model.SearchHit) string {
	timeout := s.cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	system := s.cfg.Prompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	prompt := BuildPrompt(system, message, history, hits, s.cfg.HistoryTurns)

	reply, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("LLM call failed", zap.Error(err))
		return ApologyText
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return EmptyReplyText
	}
	return reply
}

// BuildPrompt renders the system text, the transcript excerpts, the most
// recent history turns and the question.
func BuildPrompt(system, message string, history []model.ChatMessage, hits []model.SearchHit, historyTurns int) string {
	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\nContext from parliamentary transcripts:\n")
	if len(hits) == 0 {
		b.WriteString("(no matching excerpts)\n")
	}
	for i, h := range hits {
		if i == search.ChatLimit {
			break
		}
		fmt.Fprintf(&b, "[%s @ %s] %q (%s)\n", h.Title, Timestamp(h.Segment.Start), h.Segment.Text, h.Channel)
	}

	if historyTurns > 0 && len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	if len(history) > 0 {
		b.WriteString("\nPrevious conversation:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	fmt.Fprintf(&b, "\nUser question: %s\n\n", message)
	b.WriteString(instructions)
	return b.String()
}

// Extractive answers from the excerpts alone.
func Extractive(hits []model.SearchHit) string {
	var b strings.Builder
	b.WriteString("Here is what was said in the parliamentary debates I have on record:\n")
	for i, h := range hits {
		if i == MaxCitations {
			break
		}
		fmt.Fprintf(&b, "\n- %q (%s, %s)", h.Segment.Text, h.Title, Timestamp(h.Segment.Start))
	}
	return b.String()
}

// Timestamp formats seconds as mm:ss, or h:mm:ss past the hour.
func Timestamp(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h, m, sec := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}
