package model

import (
	"fmt"
	"time"
)

// Video is keyed by the YouTube video id and replaced wholesale on re-ingestion.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Channel      string    `json:"channel"`
	ChannelID    string    `json:"channel_id"`
	Description  string    `json:"description"`
	PublishedAt  time.Time `json:"published_at"`
	Duration     int       `json:"duration"` // seconds
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// Segment is a time-bounded span of transcribed speech.
type Segment struct {
	VideoID  string  `json:"video_id"`
	Sequence int     `json:"sequence"`
	Text     string  `json:"text"`
	Start    float64 `json:"start_time"`
	End      float64 `json:"end_time"`
}

// IngestedVideo is the unit stored and replaced by the repository.
type IngestedVideo struct {
	Video    Video     `json:"video"`
	Segments []Segment `json:"segments"`
	Entities []Entity  `json:"entities"`
}

// WatchURL returns the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// SeekURL returns the watch URL positioned at the given second.
func SeekURL(videoURL string, seconds int) string {
	return fmt.Sprintf("%s&t=%ds", videoURL, seconds)
}
