package model

import "time"

// SearchHit is a scored segment annotated with its parent video.
type SearchHit struct {
	Segment Segment `json:"segment"`
	Score   int     `json:"score"`
	VideoID string  `json:"video_id"`
	Title   string  `json:"title"`
	Channel string  `json:"channel"`
	URL     string  `json:"url"`
}

// Citation projects a hit for display, truncating the start time to whole seconds.
func (h SearchHit) Citation() Citation {
	ts := int(h.Segment.Start)
	return Citation{
		VideoID:   h.VideoID,
		Title:     h.Title,
		Timestamp: ts,
		Text:      h.Segment.Text,
		URL:       SeekURL(h.URL, ts),
		Channel:   h.Channel,
	}
}

type KnowledgeGraphStats struct {
	TotalVideos   int                `json:"total_videos"`
	TotalSegments int                `json:"total_segments"`
	TotalEntities int                `json:"total_entities"`
	TotalTriples  int                `json:"total_triples"`
	Categories    map[string]int     `json:"categories"`
	EntityTypes   map[EntityType]int `json:"entity_types"`
	LastUpdated   time.Time          `json:"last_updated"`
}
