package stats

import (
	"strings"
	"time"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

const (
	triplesPerVideo   = 10
	triplesPerSegment = 4
	triplesPerEntity  = 6

	CategoryOther = "other"

	ExportContentType = "text/turtle"
)

type category struct {
	name     string
	keywords []string
}

// Categories are tested in order and the first match wins.
var categories = []category{
	{"education", []string{"education", "school", "university"}},
	{"healthcare", []string{"nhs", "health", "medical"}},
	{"housing", []string{"housing", "homeless", "home"}},
	{"international", []string{"international", "foreign", "world"}},
}

// Compute recomputes the stats from scratch.
func Compute(videos []model.IngestedVideo, now time.Time) model.KnowledgeGraphStats {
	s := model.KnowledgeGraphStats{
		TotalVideos: len(videos),
		Categories:  make(map[string]int),
		EntityTypes: make(map[model.EntityType]int),
		LastUpdated: now,
	}
	for _, v := range videos {
		s.TotalSegments += len(v.Segments)
		s.TotalEntities += len(v.Entities)
		s.TotalTriples += EstimateTriples(len(v.Segments), len(v.Entities))
		s.Categories[Categorize(v.Video)]++
		for _, e := range v.Entities {
			s.EntityTypes[e.Type]++
		}
	}
	return s
}

// EstimateTriples approximates the triple count of one video.
func EstimateTriples(segments, entities int) int {
	return triplesPerVideo + triplesPerSegment*segments + triplesPerEntity*entities
}

func Categorize(v model.Video) string {
	text := strings.ToLower(v.Title + " " + v.Description)
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				return c.name
			}
		}
	}
	return CategoryOther
}

// ExportFilename returns the date-stamped download name for an export.
func ExportFilename(t time.Time) string {
	return "parliq-knowledge-graph-" + t.Format("2006-01-02") + ".ttl"
}
