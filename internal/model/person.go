package model

import (
	"strings"
	"time"
)

// Person is a contact record owned by the people database. The enrichment
// pipeline only reads it.
type Person struct {
	ID            string    `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	PrimaryEmail  string    `json:"primary_email,omitempty" yaml:"primary_email,omitempty"`
	PersonalEmail string    `json:"personal_email,omitempty" yaml:"personal_email,omitempty"`
	Phone         string    `json:"phone,omitempty" yaml:"phone,omitempty"`
	Employer      string    `json:"employer,omitempty" yaml:"employer,omitempty"`
	Position      string    `json:"position,omitempty" yaml:"position,omitempty"`
	Industry      string    `json:"industry,omitempty" yaml:"industry,omitempty"`
	City          string    `json:"city,omitempty" yaml:"city,omitempty"`
	State         string    `json:"state,omitempty" yaml:"state,omitempty"`
	Country       string    `json:"country,omitempty" yaml:"country,omitempty"`
	LinkedInURL   string    `json:"linkedin_url,omitempty" yaml:"linkedin_url,omitempty"`
	Military      bool      `json:"military,omitempty" yaml:"military,omitempty"`
	Status        string    `json:"status,omitempty" yaml:"status,omitempty"`
	LastEdited    time.Time `json:"last_edited,omitempty" yaml:"last_edited,omitempty"`
}

// SplitName splits the name on the first space into first and last tokens.
// A single-token name yields an empty last name.
func (p Person) SplitName() (first, last string) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return "", ""
	}
	first, last, _ = strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}

// DisplayName returns the person's name, or "Unknown" when it is blank.
func (p Person) DisplayName() string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	return "Unknown"
}

// RelationLink points a person page at its most recent enrichment record.
type RelationLink struct {
	PersonID string `json:"person_id" yaml:"person_id"`
	RecordID string `json:"record_id" yaml:"record_id"`
}
