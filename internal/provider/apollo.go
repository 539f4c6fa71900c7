package provider

import (
	"strings"
	"time"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Default Apify actor for the contact-data provider.
const defaultApolloActor = "jljBwyyQakqrL1wae"

// VeteranKeywords narrow contact searches for people flagged as military.
var VeteranKeywords = []string{"veteran", "military", "navy", "army", "air force", "marines"}

// ApolloInput is the job input for the contact-data actor.
type ApolloInput struct {
	SearchCriteria    ApolloSearch         `json:"searchCriteria"`
	DataEnrichment    ApolloDataEnrichment `json:"dataEnrichment"`
	VerificationLevel string               `json:"verificationLevel"`
	MaxResults        int                  `json:"maxResults"`
}

// ApolloSearch holds the search-narrowing criteria.
type ApolloSearch struct {
	FirstName              string   `json:"first_name,omitempty"`
	LastName               string   `json:"last_name,omitempty"`
	Email                  string   `json:"email,omitempty"`
	OrganizationNames      []string `json:"organization_names,omitempty"`
	PersonTitles           []string `json:"person_titles,omitempty"`
	PersonLocations        []string `json:"person_locations,omitempty"`
	OrganizationIndustries []string `json:"organization_industries,omitempty"`
	Keywords               []string `json:"keywords,omitempty"`
}

// ApolloDataEnrichment selects which data sections the actor returns.
type ApolloDataEnrichment struct {
	IncludeEmails            bool `json:"includeEmails"`
	IncludePhoneNumbers      bool `json:"includePhoneNumbers"`
	IncludeEmploymentHistory bool `json:"includeEmploymentHistory"`
	IncludeEducation         bool `json:"includeEducation"`
	IncludeTechnographics    bool `json:"includeTechnographics"`
	IncludeIntentData        bool `json:"includeIntentData"`
	IncludeFundingData       bool `json:"includeFundingData"`
	IncludeNewsAndSocial     bool `json:"includeNewsAndSocial"`
}

var apolloFields = []fieldMap{
	{"email", "email"},
	{"personal_email", "personal_email"},
	{"phone", "phone_number"},
	{"mobile", "mobile_phone_number"},
	{"email_verified", "email_verified"},
	{"phone_verified", "phone_verified"},
	{"email_source", "email_source"},
	{"phone_source", "phone_source"},
	{"title", "title"},
	{"company", "organization_name"},
	{"industry", "industry"},
	{"department", "department"},
	{"seniority", "seniority"},
	{"city", "city"},
	{"state", "state"},
	{"country", "country"},
	{"linkedin_url", "linkedin_url"},
	{"company_size", "organization_num_employees"},
	{"revenue_range", "organization_annual_revenue"},
	{"funding_stage", "organization_funding_stage"},
	{"technographics", "organization_technologies"},
	{"intent_signals", "intent_signals"},
	{"news_mentions", "news_mentions_count"},
}

// Apollo returns the contact-data provider descriptor.
func Apollo() Descriptor {
	fields := make([]string, 0, len(apolloFields)+1)
	for _, f := range apolloFields {
		fields = append(fields, f.canonical)
	}
	fields = append(fields, "raw_data")

	return Descriptor{
		ID:           model.ProviderApollo,
		Label:        "Apollo",
		ColumnPrefix: "Apollo",
		ActorID:      defaultApolloActor,
		MaxWait:      300 * time.Second,
		PollInterval: 15 * time.Second,
		Fields:       fields,
		Checklist:    []string{"email", "phone", "title", "company", "industry", "intent_signals"},
		Build:        buildApolloInput,
		Map:          mapApollo,
		Confidence:   apolloConfidence,
	}
}

// buildApolloInput needs a primary email or an employer to search on.
func buildApolloInput(p model.Person) (any, bool) {
	email := strings.TrimSpace(p.PrimaryEmail)
	employer := strings.TrimSpace(p.Employer)
	if email == "" && employer == "" {
		return nil, false
	}

	first, last := model.Person{Name: normalizeName(p.Name)}.SplitName()
	s := ApolloSearch{
		FirstName: first,
		LastName:  last,
		Email:     email,
	}
	if employer != "" {
		s.OrganizationNames = []string{employer}
	}
	if v := strings.TrimSpace(p.Position); v != "" {
		s.PersonTitles = []string{v}
	}
	for _, loc := range []string{p.City, p.State} {
		if v := strings.TrimSpace(loc); v != "" {
			s.PersonLocations = append(s.PersonLocations, v)
		}
	}
	if v := strings.TrimSpace(p.Industry); v != "" {
		s.OrganizationIndustries = []string{v}
	}
	if p.Military {
		s.Keywords = append([]string(nil), VeteranKeywords...)
	}

	return ApolloInput{
		SearchCriteria: s,
		DataEnrichment: ApolloDataEnrichment{
			IncludeEmails:            true,
			IncludePhoneNumbers:      true,
			IncludeEmploymentHistory: true,
			IncludeEducation:         true,
			IncludeTechnographics:    true,
			IncludeIntentData:        true,
			IncludeFundingData:       true,
			IncludeNewsAndSocial:     true,
		},
		VerificationLevel: "strict",
		MaxResults:        10,
	}, true
}

func mapApollo(raw model.RawResult) model.NormalizedResult {
	out := model.NormalizedResult{}
	copyFields(out, raw, apolloFields)
	if n, ok := toInt(out["news_mentions"]); ok {
		out["news_mentions"] = n
	}
	if n, ok := toInt(out["company_size"]); ok {
		out["company_size"] = n
	}
	if techs := toStrings(out["technographics"]); techs != nil {
		out["technographics"] = techs
	}
	if s := rawJSON(raw); s != "" {
		out["raw_data"] = s
	}
	return out
}

func apolloConfidence(r model.NormalizedResult) int {
	points := 0
	if r.Bool("email_verified") {
		points += 25
	}
	if r.Bool("phone_verified") {
		points += 20
	}
	if r.Filled("intent_signals") {
		points += 10
	}
	if r.Filled("technographics") {
		points += 10
	}
	if r.Int("news_mentions") > 0 {
		points += 5
	}
	return points
}
