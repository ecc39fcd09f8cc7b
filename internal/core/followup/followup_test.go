package followup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

func labels(fs []model.FollowUp) []string {
	var out []string
	for _, f := range fs {
		out = append(out, f.Label)
	}
	return out
}

func TestGenerate_Generic(t *testing.T) {
	got := Generate("What happened in Parliament?", "There was a debate.")
	assert.Equal(t, []string{"Recent debates", "Key speakers"}, labels(got))
}

func TestGenerate_Health(t *testing.T) {
	got := Generate("Tell me about NHS waiting lists", "The Labour benches argued...")
	assert.Equal(t, []string{
		"NHS funding debates",
		"Healthcare policy changes",
		"Recent debates",
		"Cross-party views",
		"Key speakers",
	}, labels(got))
	assert.Equal(t, "What are the recent debates about NHS funding and budget allocation?", got[0].Query)
}

func TestGenerate_CapsAtFive(t *testing.T) {
	got := Generate("health, school and housing", "Conservative and Liberal Democrat MPs disagreed")
	require.Len(t, got, MaxSuggestions)
	assert.Equal(t, []string{
		"NHS funding debates",
		"Healthcare policy changes",
		"Education funding",
		"University policy",
		"Housing crisis",
	}, labels(got))
}

func TestGenerate_Invariants(t *testing.T) {
	inputs := [][2]string{
		{"", ""},
		{"nhs health", "labour"},
		{"homeless housing school education", "conservative"},
		{"health", "liberal democrat"},
	}
	for _, in := range inputs {
		got := Generate(in[0], in[1])
		assert.NotEmpty(t, got)
		assert.LessOrEqual(t, len(got), MaxSuggestions)

		seen := map[string]bool{}
		for _, f := range got {
			assert.False(t, seen[f.Label], "duplicate label %q", f.Label)
			seen[f.Label] = true
			assert.NotEmpty(t, f.ID)
			assert.NotEmpty(t, f.Query)
		}
	}
}
