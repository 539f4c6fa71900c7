// Package provider describes the job-based data providers used for
// enrichment: how to build a job request from a person, how to normalize the
// job's results and how to score them.
package provider

import (
	"sync"
	"time"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Descriptor is one row of the provider table. Everything the dispatcher,
// poller and scorer need to know about a provider lives here.
type Descriptor struct {
	ID model.Provider
	// Label is the data-source name written to enrichment records.
	Label string
	// ColumnPrefix prefixes this provider's columns in the enrichment store.
	ColumnPrefix string
	ActorID      string
	MaxWait      time.Duration
	PollInterval time.Duration
	Disabled     bool

	// Fields lists the canonical fields in display order.
	Fields []string
	// Checklist is the subset of Fields that counts toward completeness.
	Checklist []string

	// Build returns the job input for p, or false when p lacks the minimum
	// input this provider needs.
	Build func(p model.Person) (any, bool)
	// Map converts a single raw result into canonical fields.
	Map func(raw model.RawResult) model.NormalizedResult
	// Confidence returns the confidence points earned by a result.
	Confidence func(r model.NormalizedResult) int
}

// Normalize picks the first raw result as the match and maps it onto the
// canonical fields. An empty list yields an empty result.
func (d Descriptor) Normalize(raw []model.RawResult) model.NormalizedResult {
	if len(raw) == 0 || raw[0] == nil {
		return model.NormalizedResult{}
	}
	return d.Map(raw[0])
}

// Filled returns the number of checklist fields r populates.
func (d Descriptor) Filled(r model.NormalizedResult) int {
	n := 0
	for _, f := range d.Checklist {
		if r.Filled(f) {
			n++
		}
	}
	return n
}

// Settings overrides a descriptor's deployment-specific values. Zero values
// keep the defaults.
type Settings struct {
	ActorID      string
	MaxWait      time.Duration
	PollInterval time.Duration
	Disabled     bool
}

// With returns a copy of d with s applied.
func (d Descriptor) With(s Settings) Descriptor {
	if s.ActorID != "" {
		d.ActorID = s.ActorID
	}
	if s.MaxWait > 0 {
		d.MaxWait = s.MaxWait
	}
	if s.PollInterval > 0 {
		d.PollInterval = s.PollInterval
	}
	d.Disabled = s.Disabled
	return d
}

// Registry holds provider descriptors in registration order. Merge and
// output ordering follow that order.
type Registry struct {
	mu    sync.RWMutex
	order []model.Provider
	byID  map[model.Provider]Descriptor
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[model.Provider]Descriptor)}
}

// Register adds d, replacing any descriptor with the same ID in place.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[d.ID]; !ok {
		r.order = append(r.order, d.ID)
	}
	r.byID[d.ID] = d
}

// Get returns the descriptor for id.
func (r *Registry) Get(id model.Provider) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// List returns all descriptors in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Enabled returns the descriptors that are not disabled, in order.
func (r *Registry) Enabled() []Descriptor {
	all := r.List()
	out := all[:0]
	for _, d := range all {
		if !d.Disabled {
			out = append(out, d)
		}
	}
	return out
}

// NewDefaultRegistry registers the contact-data provider followed by the
// social-profile provider, applying any settings keyed by provider ID.
func NewDefaultRegistry(settings map[model.Provider]Settings) *Registry {
	r := NewRegistry()
	for _, d := range []Descriptor{Apollo(), LinkedIn()} {
		r.Register(d.With(settings[d.ID]))
	}
	return r
}
