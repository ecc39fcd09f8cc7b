package guardrail

import (
	"strings"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

type Reason string

const (
	ReasonNone   Reason = ""
	ReasonLegal  Reason = "legal"
	ReasonVoting Reason = "voting"
)

var legalKeywords = []string{
	"legal advice",
	"lawyer",
	"solicitor",
	"sue",
	"lawsuit",
	"court case",
	"legal help",
	"legal support",
	"legal rights",
	"can i sue",
	"legal action",
}

var votingKeywords = []string{
	"who should i vote for",
	"who to vote for",
	"voting advice",
	"voting guidance",
	"recommend vote",
	"best candidate",
	"which party to vote",
	"voting recommendation",
	"who do you recommend",
	"electoral advice",
}

const Message = "I'm designed to help you understand parliamentary discussions and debates, " +
	"but I can't provide legal advice or voting guidance. For these important matters, " +
	"I'd recommend consulting the official resources below, where you can get proper " +
	"support from qualified professionals."

var resources = []model.ResourceLink{
	{Title: "Electoral Commission", URL: "https://www.electoralcommission.org.uk/", Description: "Official guidance on voting and elections"},
	{Title: "Citizens Advice", URL: "https://www.citizensadvice.org.uk/", Description: "Free, confidential advice on legal and practical issues"},
	{Title: "GOV.UK", URL: "https://www.gov.uk/", Description: "Official government services and information"},
	{Title: "Parliament.uk", URL: "https://www.parliament.uk/", Description: "Official UK Parliament website and resources"},
}

type Decision struct {
	Blocked bool
	Reason  Reason
}

// Classify checks the lowercased query for any legal or voting keyword as
// a plain substring. Words that embed a keyword, such as "issue" or
// "pursue" containing "sue", are blocked too.
func Classify(query string) Decision {
	q := strings.ToLower(query)
	if containsAny(q, legalKeywords) {
		return Decision{Blocked: true, Reason: ReasonLegal}
	}
	if containsAny(q, votingKeywords) {
		return Decision{Blocked: true, Reason: ReasonVoting}
	}
	return Decision{}
}

func IsLegalOrVotingQuery(query string) bool {
	return Classify(query).Blocked
}

// Resources returns a fresh copy of the static resource links.
func Resources() []model.ResourceLink {
	out := make([]model.ResourceLink, len(resources))
	copy(out, resources)
	return out
}

// Response is the disclaimer and resource links returned in place of an answer.
func Response() (string, []model.ResourceLink) {
	return Message, Resources()
}

func containsAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
