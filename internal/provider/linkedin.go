package provider

import (
	"strings"
	"time"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Default Apify actor for the social-profile provider.
const defaultLinkedInActor = "PEgClm7RgRD7YO94b"

const maxSkills = 10

// LinkedInInput is the job input for the profile actor.
type LinkedInInput struct {
	ProfileURLs           []string `json:"profileUrls"`
	IncludeFullProfile    bool     `json:"includeFullProfile"`
	IncludeContacts       bool     `json:"includeContacts"`
	IncludeSkills         bool     `json:"includeSkills"`
	IncludeExperience     bool     `json:"includeExperience"`
	IncludeEducation      bool     `json:"includeEducation"`
	IncludeCertifications bool     `json:"includeCertifications"`
	IncludeLanguages      bool     `json:"includeLanguages"`
}

var linkedInFields = []fieldMap{
	{"headline", "headline"},
	{"summary", "summary"},
	{"location", "location"},
	{"profile_industry", "industry"},
	{"connections", "connections"},
	{"followers", "followers"},
	{"current_position", "currentPosition"},
	{"current_company", "currentCompany"},
	{"experience", "experience"},
	{"education", "education"},
	{"skills", "skills"},
	{"certifications", "certifications"},
	{"languages", "languages"},
}

// LinkedIn returns the social-profile provider descriptor.
func LinkedIn() Descriptor {
	fields := make([]string, 0, len(linkedInFields)+3)
	for _, f := range linkedInFields {
		fields = append(fields, f.canonical)
	}
	fields = append(fields, "experience_count", "education_count", "raw_data")

	return Descriptor{
		ID:           model.ProviderLinkedIn,
		Label:        "LinkedIn Profile",
		ColumnPrefix: "LinkedIn",
		ActorID:      defaultLinkedInActor,
		MaxWait:      180 * time.Second,
		PollInterval: 10 * time.Second,
		Fields:       fields,
		Checklist:    []string{"headline", "summary", "experience", "skills", "connections"},
		Build:        buildLinkedInInput,
		Map:          mapLinkedIn,
		Confidence:   linkedInConfidence,
	}
}

// buildLinkedInInput needs a profile URL.
func buildLinkedInInput(p model.Person) (any, bool) {
	u := strings.TrimSpace(p.LinkedInURL)
	if u == "" {
		return nil, false
	}
	return LinkedInInput{
		ProfileURLs:           []string{u},
		IncludeFullProfile:    true,
		IncludeContacts:       true,
		IncludeSkills:         true,
		IncludeExperience:     true,
		IncludeEducation:      true,
		IncludeCertifications: true,
		IncludeLanguages:      true,
	}, true
}

func mapLinkedIn(raw model.RawResult) model.NormalizedResult {
	out := model.NormalizedResult{}
	copyFields(out, raw, linkedInFields)

	for _, k := range []string{"connections", "followers"} {
		if v, ok := out[k]; ok {
			if n, ok := toInt(v); ok {
				out[k] = n
			} else {
				delete(out, k)
			}
		}
	}
	if n := listLen(out["experience"]); n >= 0 {
		out["experience_count"] = n
	}
	if n := listLen(out["education"]); n >= 0 {
		out["education_count"] = n
	}
	if v, ok := out["skills"]; ok {
		skills := toStrings(v)
		if len(skills) > maxSkills {
			skills = skills[:maxSkills]
		}
		out["skills"] = skills
	}
	if v, ok := out["languages"]; ok {
		out["languages"] = toStrings(v)
	}
	if s := rawJSON(raw); s != "" {
		out["raw_data"] = s
	}
	return out
}

func linkedInConfidence(r model.NormalizedResult) int {
	points := 0
	if r.Int("experience_count") >= 2 {
		points += 15
	}
	if r.Int("connections") >= 100 {
		points += 15
	}
	if r.Int("education_count") >= 1 {
		points += 5
	}
	return points
}
