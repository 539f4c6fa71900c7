package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/pkg/apify"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is shared by concurrent provider pipelines.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: testNow} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// actorScript drives the fake provider API for one actor.
type actorScript struct {
	startErr  error
	statuses  []apify.RunStatus
	statusErr error
	items     []map[string]any
}

type fakeApify struct {
	mu      sync.Mutex
	scripts map[string]*actorScript
	checks  map[string]int
	started []string
	inputs  map[string]any
}

func newFakeApify(scripts map[string]*actorScript) *fakeApify {
	return &fakeApify{scripts: scripts, checks: map[string]int{}, inputs: map[string]any{}}
}

func (f *fakeApify) StartRun(_ context.Context, actorID string, input any) (*apify.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scripts[actorID]
	if !ok {
		return nil, eris.Errorf("unknown actor %s", actorID)
	}
	if s.startErr != nil {
		return nil, s.startErr
	}
	f.started = append(f.started, actorID)
	f.inputs[actorID] = input
	return &apify.Run{ID: "run-" + actorID, ActID: actorID, Status: apify.StatusReady, DefaultDatasetID: "ds-" + actorID}, nil
}

func (f *fakeApify) GetRun(_ context.Context, runID string) (*apify.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	actorID := runID[len("run-"):]
	s := f.scripts[actorID]
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	i := f.checks[actorID]
	f.checks[actorID] = i + 1
	status := s.statuses[min(i, len(s.statuses)-1)]
	return &apify.Run{ID: runID, ActID: actorID, Status: status, DefaultDatasetID: "ds-" + actorID}, nil
}

func (f *fakeApify) GetDatasetItems(_ context.Context, datasetID string) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scripts[datasetID[len("ds-"):]].items, nil
}

func (f *fakeApify) startedActors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

type fakeGateway struct {
	people   map[string]model.Person
	existing map[string]*model.StoredRecord
	findErr  error
	getErr   error
}

func (g *fakeGateway) ListPeople(context.Context) ([]model.Person, error) {
	out := make([]model.Person, 0, len(g.people))
	for _, p := range g.people {
		out = append(out, p)
	}
	return out, nil
}

func (g *fakeGateway) GetPerson(_ context.Context, id string) (*model.Person, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	p, ok := g.people[id]
	if !ok {
		return nil, eris.Wrapf(model.ErrNotFound, "person %s", id)
	}
	return &p, nil
}

func (g *fakeGateway) FindEnrichmentRecord(_ context.Context, personID string) (*model.StoredRecord, error) {
	if g.findErr != nil {
		return nil, g.findErr
	}
	return g.existing[personID], nil
}

type fakeWriter struct {
	mu        sync.Mutex
	createErr error
	linkErr   error
	created   []model.EnrichmentRecord
	links     []model.RelationLink
	statuses  map[string]model.EnrichmentStatus
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{statuses: map[string]model.EnrichmentStatus{}}
}

func (w *fakeWriter) CreateEnrichmentRecord(_ context.Context, p model.Person, rec *model.EnrichmentRecord) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.createErr != nil {
		return "", w.createErr
	}
	w.created = append(w.created, *rec)
	return fmt.Sprintf("rec-%s-%d", p.ID, len(w.created)), nil
}

func (w *fakeWriter) UpdatePersonStatus(_ context.Context, personID string, status model.EnrichmentStatus) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.statuses[personID] = status
	return nil
}

func (w *fakeWriter) Link(_ context.Context, personID, recordID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.linkErr != nil {
		return w.linkErr
	}
	w.links = append(w.links, model.RelationLink{PersonID: personID, RecordID: recordID})
	return nil
}

type fakeHistory struct {
	mu       sync.Mutex
	attempts []model.Attempt
	err      error
}

func (h *fakeHistory) SaveAttempt(_ context.Context, a *model.Attempt) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts = append(h.attempts, *a)
	return h.err
}

type fakeMetrics struct {
	mu        sync.Mutex
	providers map[model.Provider]model.JobStatus
	attempts  []model.EnrichmentStatus
}

func (m *fakeMetrics) ObserveProvider(p model.Provider, status model.JobStatus, _ bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.providers == nil {
		m.providers = map[model.Provider]model.JobStatus{}
	}
	m.providers[p] = status
}

func (m *fakeMetrics) ObserveAttempt(status model.EnrichmentStatus, _, _ bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, status)
}
