package extraction

import (
	"context"
	"regexp"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

const PatternStrategy = "pattern"

type rule struct {
	typ        model.EntityType
	re         *regexp.Regexp
	confidence float64
}

// Rules are evaluated in this order for every segment.
var defaultRules = []rule{
	// Person
	{model.EntityPerson, regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Sir|Dame|Lord|Lady)\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`), 0.85},
	{model.EntityPerson, regexp.MustCompile(`\b(?:Prime Minister|Chancellor|Secretary of State|Minister|MP)\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`), 0.8},
	{model.EntityPerson, regexp.MustCompile(`(?i)\b(?:Boris Johnson|Rishi Sunak|Keir Starmer|Jeremy Hunt|Rachel Reeves|Theresa May|Liz Truss)\b`), 0.9},

	// Party
	{model.EntityParty, regexp.MustCompile(`(?i)\b(?:Conservatives?|Labour|Liberal Democrats?|SNP|Plaid Cymru|Green Party|Reform UK|UKIP|Brexit Party|DUP|Sinn F[eé]in)\b`), 0.9},
	{model.EntityParty, regexp.MustCompile(`(?i)\b(?:Tory|Tories|Lib Dems?)\b`), 0.85},

	// Policy
	{model.EntityPolicy, regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\s+(?:Bill|Act|Policy|Strategy|Programme|Scheme)\b`), 0.75},
	{model.EntityPolicy, regexp.MustCompile(`\b[A-Z][A-Z0-9]+(?:\s+[a-z]+){1,3}\s+(?:Bill|Act|Policy|Strategy|Programme|Scheme)\b`), 0.7},
	{model.EntityPolicy, regexp.MustCompile(`(?i)\b(?:NHS|National Health Service|Brexit|Universal Credit|HS2)\b`), 0.9},
	{model.EntityPolicy, regexp.MustCompile(`(?i)\b(?:Net Zero|Climate Change|Levelling Up)\b`), 0.8},

	// Location
	{model.EntityLocation, regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\s+(?i:constituency|borough|council|ward)\b`), 0.7},
	{model.EntityLocation, regexp.MustCompile(`(?i)\b(?:England|Scotland|Wales|Northern Ireland|United Kingdom|UK|Britain)\b`), 0.9},
	{model.EntityLocation, regexp.MustCompile(`(?i)\b(?:London|Manchester|Birmingham|Liverpool|Leeds|Sheffield|Bristol|Edinburgh|Glasgow|Cardiff|Belfast)\b`), 0.85},

	// Event
	{model.EntityEvent, regexp.MustCompile(`(?i)\b(?:General Election|Local Elections?|By-Election|Referendum|Budget|Autumn Statement|Spring Statement)\b`), 0.85},
	{model.EntityEvent, regexp.MustCompile(`(?i)\b(?:Prime Minister['’]s Questions|PMQs|State Opening|(?:Queen|King)['’]s Speech)\b`), 0.9},
}

// PatternExtractor matches a fixed allow-list of regular expressions. Each
// match takes the bounds and text of the segment it was found in.
type PatternExtractor struct {
	rules []rule
}

func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{rules: defaultRules}
}

func (p *PatternExtractor) Name() string { return PatternStrategy }

func (p *PatternExtractor) Extract(_ context.Context, video model.Video, segments []model.Segment) ([]model.Entity, error) {
	entities := []model.Entity{}
	for _, seg := range segments {
		for _, r := range p.rules {
			for _, m := range r.re.FindAllString(seg.Text, -1) {
				entities = append(entities, model.Entity{
					VideoID:    video.ID,
					Sequence:   len(entities),
					Type:       r.typ,
					Text:       m,
					Start:      seg.Start,
					End:        seg.End,
					Confidence: r.confidence,
					Context:    seg.Text,
				})
			}
		}
	}
	return entities, nil
}
