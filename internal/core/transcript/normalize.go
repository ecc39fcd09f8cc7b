package transcript

import (
	"sort"
	"strings"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

// Normalize orders segments by start time and assigns sequence numbers.
func Normalize(videoID string, segments []model.Segment) []model.Segment {
	out := make([]model.Segment, 0, len(segments))
	for _, s := range segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		if s.End < s.Start {
			s.End = s.Start
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	for i := range out {
		out[i].VideoID = videoID
		out[i].Sequence = i
	}
	return out
}

// MergeSentences joins consecutive caption cues until one ends a sentence
// or the merged span would exceed maxSpan seconds.
func MergeSentences(segments []model.Segment, maxSpan float64) []model.Segment {
	var out []model.Segment
	var cur *model.Segment

	for _, s := range segments {
		if cur != nil && maxSpan > 0 && s.End-cur.Start > maxSpan {
			out = append(out, *cur)
			cur = nil
		}
		if cur == nil {
			c := s
			cur = &c
		} else {
			cur.Text += " " + s.Text
			cur.End = s.End
		}
		if endsSentence(s.Text) {
			out = append(out, *cur)
			cur = nil
		}
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

func endsSentence(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasSuffix(t, ".") || strings.HasSuffix(t, "?") || strings.HasSuffix(t, "!")
}
