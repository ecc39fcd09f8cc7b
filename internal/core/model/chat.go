package model

import "time"

const RoleAssistant = "assistant"

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history"`
}

// Citation is a display projection of a search hit.
type Citation struct {
	VideoID   string `json:"video_id"`
	Title     string `json:"title"`
	Timestamp int    `json:"timestamp"`
	Text      string `json:"text"`
	URL       string `json:"url"`
	Channel   string `json:"channel"`
}

type FollowUp struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Query string `json:"query"`
}

type ResourceLink struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type ChatResponse struct {
	ID                  string         `json:"id"`
	Role                string         `json:"role"`
	Content             string         `json:"content"`
	Citations           []Citation     `json:"citations"`
	Timestamp           time.Time      `json:"timestamp"`
	FollowUps           []FollowUp     `json:"follow_ups"`
	IsGuardrailResponse bool           `json:"is_guardrail_response"`
	Resources           []ResourceLink `json:"resources,omitempty"`
}
