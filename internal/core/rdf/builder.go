package rdf

import (
	"fmt"
	"net/url"
	"time"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

func pol(local string) Term  { return Name("pol", local) }
func rdfs(local string) Term { return Name("rdfs", local) }
func dct(local string) Term  { return Name("dct", local) }

func VideoIRI(videoID string) Term {
	return IRI(ResourceBase + "video/" + url.PathEscape(videoID))
}

func ChannelIRI(channelID string) Term {
	return IRI(ResourceBase + "channel/" + url.PathEscape(channelID))
}

func SentenceIRI(videoID string, seq int) Term {
	return IRI(fmt.Sprintf("%ssentence/%s-%d", ResourceBase, url.PathEscape(videoID), seq))
}

func EntityIRI(videoID string, seq int) Term {
	return IRI(fmt.Sprintf("%sentity/%s-%d", ResourceBase, url.PathEscape(videoID), seq))
}

func DateTime(t time.Time) Term {
	return Typed(t.UTC().Format(time.RFC3339), "xsd:dateTime")
}

// Builder turns ingested videos into triples using the pol: vocabulary.
type Builder struct {
	graph    *Graph
	channels map[string]bool
}

func NewBuilder() *Builder {
	return &Builder{
		graph:    NewGraph(),
		channels: make(map[string]bool),
	}
}

func (b *Builder) Graph() *Graph { return b.graph }

// AddVideo emits the video, its channel (once per channel), its segments
// and its entities.
func (b *Builder) AddVideo(iv model.IngestedVideo) {
	g := b.graph
	v := iv.Video
	subject := VideoIRI(v.ID)

	g.Add(subject, RDFType, pol("Video"))
	g.Add(subject, dct("title"), Literal(v.Title))
	g.Add(subject, dct("description"), Literal(v.Description))
	g.Add(subject, pol("duration"), Integer(v.Duration))
	if !v.PublishedAt.IsZero() {
		g.Add(subject, dct("created"), DateTime(v.PublishedAt))
	}
	g.Add(subject, pol("url"), Literal(v.URL))
	if v.ThumbnailURL != "" {
		g.Add(subject, pol("thumbnail"), Literal(v.ThumbnailURL))
	}

	channelKey := v.ChannelID
	if channelKey == "" {
		channelKey = v.Channel
	}
	if channelKey != "" {
		channel := ChannelIRI(channelKey)
		g.Add(subject, pol("publishedBy"), channel)
		if !b.channels[channelKey] {
			b.channels[channelKey] = true
			g.Add(channel, RDFType, pol("Channel"))
			g.Add(channel, rdfs("label"), Literal(v.Channel))
		}
	}

	for _, s := range iv.Segments {
		sub := SentenceIRI(v.ID, s.Sequence)
		g.Add(sub, RDFType, pol("TranscriptSentence"))
		g.Add(sub, pol("text"), Literal(s.Text))
		g.Add(sub, pol("startTime"), Decimal(s.Start))
		g.Add(sub, pol("endTime"), Decimal(s.End))
		g.Add(sub, pol("sequence"), Integer(s.Sequence))
		g.Add(sub, pol("partOf"), subject)
	}

	for _, e := range iv.Entities {
		sub := EntityIRI(v.ID, e.Sequence)
		g.Add(sub, RDFType, pol(string(e.Type)))
		g.Add(sub, rdfs("label"), Literal(e.Text))
		g.Add(sub, pol("startTime"), Decimal(e.Start))
		g.Add(sub, pol("endTime"), Decimal(e.End))
		g.Add(sub, pol("confidence"), Decimal(e.Confidence))
		g.Add(sub, pol("context"), Literal(e.Context))
		g.Add(sub, pol("extractedFrom"), subject)
	}
}

// BuildGraph builds one graph from videos in the given order.
func BuildGraph(videos []model.IngestedVideo) *Graph {
	b := NewBuilder()
	for _, v := range videos {
		b.AddVideo(v)
	}
	return b.Graph()
}

// SystemGraph is the placeholder document for an empty collection.
func SystemGraph(created time.Time) *Graph {
	g := NewGraph()
	sys := IRI(ResourceBase + "system")
	g.Add(sys, RDFType, pol("ParliamentaryKnowledgeGraph"))
	g.Add(sys, rdfs("label"), Literal("UK Parliamentary Knowledge Graph"))
	g.Add(sys, dct("created"), DateTime(created))
	g.Add(sys, rdfs("comment"), Literal("No videos have been ingested yet."))
	return g
}
