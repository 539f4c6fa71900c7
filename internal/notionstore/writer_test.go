package notionstore

import (
	"context"
	"strings"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/pkg/notion/mocks"
)

func newWriter(t *testing.T) (*Writer, *mocks.MockClient, *PeopleCache) {
	t.Helper()
	mc := mocks.NewMockClient(t)
	cache := NewPeopleCache(0)
	return NewWriter(mc, testDBs, provider.NewDefaultRegistry(nil), cache), mc, cache
}

func TestWriter_CreateEnrichmentRecord(t *testing.T) {
	w, mc, _ := newWriter(t)
	ctx := context.Background()

	var captured *notionapi.PageCreateRequest
	mc.On("CreatePage", ctx, mock.AnythingOfType("*notionapi.PageCreateRequest")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*notionapi.PageCreateRequest)
		}).
		Return(&notionapi.Page{ID: "rec-1"}, nil).Once()

	id, err := w.CreateEnrichmentRecord(ctx, model.Person{ID: "p1", Name: "Jane Doe"}, sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "rec-1", id)

	require.NotNil(t, captured)
	assert.Equal(t, notionapi.ParentTypeDatabaseID, captured.Parent.Type)
	assert.Equal(t, notionapi.DatabaseID("enrichment-db"), captured.Parent.DatabaseID)
	assert.Contains(t, captured.Properties, "Apollo Email")
	assert.Contains(t, captured.Properties, PropNotes)
}

func TestWriter_CreateEnrichmentRecord_Error(t *testing.T) {
	w, mc, _ := newWriter(t)
	ctx := context.Background()

	mc.On("CreatePage", ctx, mock.Anything).Return(nil, assert.AnError).Once()

	id, err := w.CreateEnrichmentRecord(ctx, model.Person{ID: "p1"}, sampleRecord())
	require.Error(t, err)
	assert.Empty(t, id)
	assert.Contains(t, err.Error(), "create enrichment record for p1")
}

func TestWriter_UpdatePersonStatus(t *testing.T) {
	w, mc, cache := newWriter(t)
	ctx := context.Background()
	cache.Put(model.Person{ID: "p1", Status: "Working"})

	mc.On("UpdatePage", ctx, "p1", mock.MatchedBy(func(req *notionapi.PageUpdateRequest) bool {
		sp, ok := req.Properties[PropStatus].(notionapi.StatusProperty)
		return ok && sp.Status.Name == "Partial"
	})).Return(&notionapi.Page{ID: "p1"}, nil).Once()

	require.NoError(t, w.UpdatePersonStatus(ctx, "p1", model.StatusPartial))
	_, ok := cache.Get("p1")
	assert.False(t, ok, "status change invalidates the cached person")
}

func TestWriter_UpdatePersonStatus_ErrorStillInvalidates(t *testing.T) {
	w, mc, cache := newWriter(t)
	ctx := context.Background()
	cache.Put(model.Person{ID: "p1"})

	mc.On("UpdatePage", ctx, "p1", mock.Anything).Return(nil, assert.AnError).Once()

	assert.Error(t, w.UpdatePersonStatus(ctx, "p1", model.StatusFailed))
	_, ok := cache.Get("p1")
	assert.False(t, ok)
}

func TestWriter_Link(t *testing.T) {
	w, mc, _ := newWriter(t)
	ctx := context.Background()

	mc.On("UpdatePage", ctx, "p1", mock.MatchedBy(func(req *notionapi.PageUpdateRequest) bool {
		rp, ok := req.Properties[PropRecordLink].(notionapi.RelationProperty)
		return ok && len(rp.Relation) == 1 && rp.Relation[0].ID == notionapi.PageID("rec-1")
	})).Return(&notionapi.Page{ID: "p1"}, nil).Once()

	assert.NoError(t, w.Link(ctx, "p1", "rec-1"))
}

func TestWriter_Link_Error(t *testing.T) {
	w, mc, _ := newWriter(t)
	ctx := context.Background()

	mc.On("UpdatePage", ctx, "p1", mock.Anything).Return(nil, assert.AnError).Once()

	err := w.Link(ctx, "p1", "rec-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link p1 to rec-1")
}

func TestImportPeople(t *testing.T) {
	w, mc, cache := newWriter(t)
	ctx := context.Background()
	cache.SetAll([]model.Person{{ID: "old"}})

	var names []string
	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		return req.Parent.DatabaseID == notionapi.DatabaseID("people-db")
	})).Run(func(args mock.Arguments) {
		req := args.Get(1).(*notionapi.PageCreateRequest)
		names = append(names, titleText(req.Properties[PropName]))
		sp := req.Properties[PropStatus].(notionapi.StatusProperty)
		assert.Equal(t, "Not Started", sp.Status.Name)
	}).Return(&notionapi.Page{ID: "new"}, nil).Twice()

	rows := []map[string]string{
		{"Name": "Jane Doe", "Email": "jane@acme.com"},
		{"Name": "", "Email": "nobody@acme.com"},
		{"Full Name": "John Roe", "Company": "Beta"},
	}
	n, err := ImportPeople(ctx, w, rows, "Not Started")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, names)
	_, ok := cache.List()
	assert.False(t, ok)
}

func TestImportPeople_StopsOnError(t *testing.T) {
	w, mc, _ := newWriter(t)
	ctx := context.Background()

	mc.On("CreatePage", ctx, mock.Anything).Return(nil, assert.AnError).Once()

	n, err := ImportPeople(ctx, w, []map[string]string{{"Name": "A"}, {"Name": "B"}}, "")
	require.Error(t, err)
	assert.Equal(t, 0, n)
}

func TestImportPeople_Cancelled(t *testing.T) {
	w, _, _ := newWriter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := ImportPeople(ctx, w, []map[string]string{{"Name": "A"}}, "")
	require.Error(t, err)
	assert.Zero(t, n)
	assert.True(t, strings.Contains(err.Error(), "import cancelled"))
}

func TestPersonFromRow(t *testing.T) {
	p := PersonFromRow(map[string]string{
		"Name":         `"Jane Doe"`,
		"Email":        "jane@acme.com",
		"Title":        "CTO",
		"Company":      "Acme",
		"LinkedIn URL": "linkedin.com/in/jane",
		"Veteran":      "Yes",
		"Notes":        "ignored",
	})
	assert.Equal(t, model.Person{
		Name:         "Jane Doe",
		PrimaryEmail: "jane@acme.com",
		Position:     "CTO",
		Employer:     "Acme",
		LinkedInURL:  "https://linkedin.com/in/jane",
		Military:     true,
	}, p)

	assert.False(t, PersonFromRow(map[string]string{"Military": "no"}).Military)
	assert.True(t, PersonFromRow(map[string]string{"Military": "TRUE"}).Military)
}
