package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
)

func TestEligibleProviders(t *testing.T) {
	descriptors := provider.NewDefaultRegistry(nil).Enabled()

	tests := []struct {
		name   string
		person model.Person
		want   []string
	}{
		{"email only", model.Person{PrimaryEmail: "jane@acme.com"}, []string{"apollo"}},
		{"employer and linkedin", model.Person{Employer: "Acme", LinkedInURL: "https://linkedin.com/in/jane"}, []string{"apollo", "linkedin"}},
		{"linkedin only", model.Person{LinkedInURL: "https://linkedin.com/in/jane"}, []string{"linkedin"}},
		{"nothing", model.Person{Name: "Jane"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eligibleProviders(tt.person, descriptors))
		})
	}
}

func TestEligibleProviders_Disabled(t *testing.T) {
	reg := provider.NewDefaultRegistry(map[model.Provider]provider.Settings{
		model.ProviderLinkedIn: {Disabled: true},
	})
	p := model.Person{Employer: "Acme", LinkedInURL: "https://linkedin.com/in/jane"}
	assert.Equal(t, []string{"apollo"}, eligibleProviders(p, reg.Enabled()))
}

func TestFormatPeopleList(t *testing.T) {
	people := []model.Person{
		{ID: "11111111-2222-3333-4444-555555555555", Name: "Jane Doe", Employer: "Acme", Status: "Working", PrimaryEmail: "jane@acme.com"},
		{ID: "p2", Status: "Not Started"},
	}

	var buf bytes.Buffer
	formatPeopleList(&buf, people, provider.NewDefaultRegistry(nil).Enabled())

	output := buf.String()
	assert.Contains(t, output, "PROVIDERS")
	assert.Contains(t, output, "11111111-2222-3333-4444-555555555555")
	assert.Contains(t, output, "Jane Doe")
	assert.Contains(t, output, "apollo")
	assert.Contains(t, output, "Unknown")
	assert.Contains(t, output, "-")
}
