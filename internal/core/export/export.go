package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
	"github.com/KMMOrganisation/ParliQ/internal/core/rdf"
	"github.com/KMMOrganisation/ParliQ/internal/core/stats"
)

const Title = "ParliQ Knowledge Graph"

type VideoSource interface {
	All(ctx context.Context) ([]model.IngestedVideo, error)
}

// Document is a rendered Turtle export ready to be written or served.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
	Videos      int
	Segments    int
	Entities    int
	Triples     int
}

type Exporter struct {
	videos VideoSource
	logger *zap.Logger
}

func NewExporter(videos VideoSource, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{videos: videos, logger: logger.Named("export")}
}

// Export renders every stored video. An empty collection yields the
// system placeholder graph so the document is never blank.
func (e *Exporter) Export(ctx context.Context, now time.Time) (Document, error) {
	videos, err := e.videos.All(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("failed to load videos for export: %w", err)
	}

	doc := Document{
		Filename:    stats.ExportFilename(now),
		ContentType: stats.ExportContentType,
		Videos:      len(videos),
	}
	for _, v := range videos {
		doc.Segments += len(v.Segments)
		doc.Entities += len(v.Entities)
	}

	var g *rdf.Graph
	if len(videos) == 0 {
		g = rdf.SystemGraph(now)
	} else {
		g = rdf.BuildGraph(videos)
	}
	g.Comment(Title)
	g.Comment("Generated: " + now.UTC().Format(time.RFC3339))
	g.Comment(fmt.Sprintf("Videos: %d", doc.Videos))
	g.Comment(fmt.Sprintf("Sentences: %d", doc.Segments))
	g.Comment(fmt.Sprintf("Entities: %d", doc.Entities))

	var buf bytes.Buffer
	if err := rdf.WriteTurtle(&buf, g); err != nil {
		return Document{}, fmt.Errorf("failed to serialize turtle: %w", err)
	}
	doc.Body = buf.Bytes()
	doc.Triples = g.Len()

	e.logger.Info("knowledge graph exported",
		zap.Int("videos", doc.Videos),
		zap.Int("triples", doc.Triples),
		zap.Int("bytes", len(doc.Body)))
	return doc, nil
}
