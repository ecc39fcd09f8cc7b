package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

const (
	DefaultLimit = 5
	ChatLimit    = 10

	minTokenLen = 3
	phraseBonus = 3
)

// Search scores every segment against the query and returns the best hits.
// A segment earns one point per query token (longer than two characters)
// found in its text, plus a bonus when the whole query appears verbatim.
// Segments scoring zero are dropped; ties keep encounter order.
func Search(query string, videos []model.IngestedVideo, limit int) []model.SearchHit {
	phrase := strings.ToLower(strings.TrimSpace(query))
	if phrase == "" {
		return nil
	}
	tokens := Tokenize(phrase)

	var hits []model.SearchHit
	for _, v := range videos {
		for _, seg := range v.Segments {
			score := Score(tokens, phrase, seg.Text)
			if score == 0 {
				continue
			}
			hits = append(hits, model.SearchHit{
				Segment: seg,
				Score:   score,
				VideoID: v.Video.ID,
				Title:   v.Video.Title,
				Channel: v.Video.Channel,
				URL:     v.Video.URL,
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Tokenize splits a lowercased query on whitespace and drops tokens shorter
// than three characters, counted in runes.
func Tokenize(query string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(tok) >= minTokenLen {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Score expects tokens and phrase already lowercased.
func Score(tokens []string, phrase, text string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			score++
		}
	}
	if phrase != "" && strings.Contains(lower, phrase) {
		score += phraseBonus
	}
	return score
}
