package model

import (
	"fmt"
	"strings"
)

type EntityType string

const (
	EntityPerson   EntityType = "Person"
	EntityParty    EntityType = "Party"
	EntityPolicy   EntityType = "Policy"
	EntityLocation EntityType = "Location"
	EntityEvent    EntityType = "Event"
	EntityQuote    EntityType = "Quote"
)

// EntityTypes lists the closed set of categories in a stable order.
var EntityTypes = []EntityType{
	EntityPerson,
	EntityParty,
	EntityPolicy,
	EntityLocation,
	EntityEvent,
	EntityQuote,
}

// ParseEntityType accepts any casing of a known category.
func ParseEntityType(s string) (EntityType, error) {
	for _, t := range EntityTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Entity is an extracted mention. Identity is (VideoID, Sequence).
type Entity struct {
	VideoID    string     `json:"video_id"`
	Sequence   int        `json:"sequence"`
	Type       EntityType `json:"type"`
	Text       string     `json:"text"`
	Start      float64    `json:"start_time"`
	End        float64    `json:"end_time"`
	Confidence float64    `json:"confidence"`
	Context    string     `json:"context"`
}
