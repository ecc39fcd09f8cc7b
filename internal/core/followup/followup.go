package followup

import (
	"strings"

	"github.com/google/uuid"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

const MaxSuggestions = 5

type suggestion struct {
	label string
	query string
}

type topic struct {
	keywords    []string
	suggestions []suggestion
}

var queryTopics = []topic{
	{
		keywords: []string{"nhs", "health"},
		suggestions: []suggestion{
			{"NHS funding debates", "What are the recent debates about NHS funding and budget allocation?"},
			{"Healthcare policy changes", "What healthcare policy changes have been discussed recently?"},
		},
	},
	{
		keywords: []string{"education", "school"},
		suggestions: []suggestion{
			{"Education funding", "What has been said about education funding and school budgets?"},
			{"University policy", "What are the recent discussions about university fees and higher education?"},
		},
	},
	{
		keywords: []string{"housing", "homeless"},
		suggestions: []suggestion{
			{"Housing crisis", "What are MPs saying about the housing crisis and affordability?"},
			{"Social housing", "What are the recent debates about social housing and council homes?"},
		},
	},
}

var (
	recentDebates = suggestion{"Recent debates", "What were the most important debates in Parliament this week?"}
	crossParty    = suggestion{"Cross-party views", "What do different political parties say about this topic?"}
	keySpeakers   = suggestion{"Key speakers", "Who are the main MPs speaking about this issue?"}

	partySignals = []string{"labour", "conservative", "liberal democrat"}
)

// Generate suggests follow-up questions from the query and the reply.
// The result is never empty, holds at most MaxSuggestions entries and
// never repeats a label.
func Generate(query, reply string) []model.FollowUp {
	q := strings.ToLower(query)
	r := strings.ToLower(reply)

	var candidates []suggestion
	for _, t := range queryTopics {
		if containsAny(q, t.keywords) {
			candidates = append(candidates, t.suggestions...)
		}
	}
	candidates = append(candidates, recentDebates)
	if containsAny(r, partySignals) {
		candidates = append(candidates, crossParty)
	}
	candidates = append(candidates, keySpeakers)

	seen := make(map[string]bool, len(candidates))
	out := make([]model.FollowUp, 0, MaxSuggestions)
	for _, c := range candidates {
		if seen[c.label] {
			continue
		}
		seen[c.label] = true
		out = append(out, model.FollowUp{
			ID:    uuid.New().String(),
			Label: c.label,
			Query: c.query,
		})
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
