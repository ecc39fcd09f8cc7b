package transcript

import (
	"encoding/xml"
	"fmt"
	"html"
	"strings"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

type timedText struct {
	Lines []timedLine `xml:"text"`
}

type timedLine struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Text  string  `xml:",chardata"`
}

// ParseTimedText parses a YouTube timedtext XML caption document.
func ParseTimedText(data []byte) ([]model.Segment, error) {
	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("failed to parse timedtext XML: %w", err)
	}

	segments := make([]model.Segment, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := CleanText(line.Text)
		if text == "" {
			continue
		}
		segments = append(segments, model.Segment{
			Text:  text,
			Start: line.Start,
			End:   line.Start + line.Dur,
		})
	}
	return segments, nil
}

// CleanText decodes caption entities (YouTube encodes them twice) and
// collapses whitespace.
func CleanText(s string) string {
	s = html.UnescapeString(html.UnescapeString(s))
	return strings.Join(strings.Fields(s), " ")
}
