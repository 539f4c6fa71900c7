package notionstore

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/pkg/notion/mocks"
)

var testDBs = Databases{People: "people-db", Enrichment: "enrichment-db"}

func personPage(id, name string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			PropName:   &notionapi.TitleProperty{Title: rt(name)},
			PropStatus: &notionapi.StatusProperty{Status: notionapi.Status{Name: "Working"}},
		},
	}
}

func newGateway(t *testing.T) (*Gateway, *mocks.MockClient, *PeopleCache) {
	t.Helper()
	mc := mocks.NewMockClient(t)
	cache := NewPeopleCache(0)
	return NewGateway(mc, testDBs, provider.NewDefaultRegistry(nil), cache), mc, cache
}

func TestGateway_ListPeople_UsesCache(t *testing.T) {
	g, mc, _ := newGateway(t)
	ctx := context.Background()

	archived := personPage("p3", "Gone")
	archived.Archived = true
	mc.On("QueryDatabase", ctx, "people-db", mock.Anything).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{personPage("p1", "Jane Doe"), personPage("p2", "John Roe"), archived},
		}, nil).Once()

	people, err := g.ListPeople(ctx)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Jane Doe", people[0].Name)

	again, err := g.ListPeople(ctx)
	require.NoError(t, err)
	assert.Equal(t, people, again)
}

func TestGateway_ListPeople_RefetchAfterInvalidate(t *testing.T) {
	g, mc, cache := newGateway(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "people-db", mock.Anything).
		Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{personPage("p1", "Jane Doe")}}, nil).Twice()

	_, err := g.ListPeople(ctx)
	require.NoError(t, err)
	cache.InvalidateAll()
	_, err = g.ListPeople(ctx)
	require.NoError(t, err)
}

func TestGateway_ListPeople_Error(t *testing.T) {
	g, mc, _ := newGateway(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "people-db", mock.Anything).Return(nil, assert.AnError).Once()

	_, err := g.ListPeople(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notionstore: list people")
}

func TestGateway_ListPeopleByStatus_FillsCache(t *testing.T) {
	g, mc, cache := newGateway(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "people-db", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		return ok && pf.Status != nil && pf.Status.Equals == "Working"
	})).Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{personPage("p1", "Jane Doe")}}, nil).Once()

	people, err := g.ListPeopleByStatus(ctx, "Working")
	require.NoError(t, err)
	require.Len(t, people, 1)

	p, err := g.GetPerson(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, 1, cache.Len())
}

func TestGateway_GetPerson(t *testing.T) {
	g, mc, _ := newGateway(t)
	ctx := context.Background()

	page := personPage("p1", "Jane Doe")
	mc.On("GetPage", ctx, "p1").Return(&page, nil).Once()

	p, err := g.GetPerson(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", p.Name)

	cached, err := g.GetPerson(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p, cached)
}

func TestGateway_GetPerson_NotFound(t *testing.T) {
	ctx := context.Background()

	t.Run("api 404", func(t *testing.T) {
		g, mc, _ := newGateway(t)
		mc.On("GetPage", ctx, "missing").
			Return(nil, &notionapi.Error{Status: http.StatusNotFound, Code: "object_not_found"}).Once()

		_, err := g.GetPerson(ctx, "missing")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("archived", func(t *testing.T) {
		g, mc, _ := newGateway(t)
		page := personPage("old", "Old")
		page.Archived = true
		mc.On("GetPage", ctx, "old").Return(&page, nil).Once()

		_, err := g.GetPerson(ctx, "old")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("other error", func(t *testing.T) {
		g, mc, _ := newGateway(t)
		mc.On("GetPage", ctx, "p1").Return(nil, assert.AnError).Once()

		_, err := g.GetPerson(ctx, "p1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrNotFound)
	})
}

func TestGateway_FindEnrichmentRecord(t *testing.T) {
	g, mc, _ := newGateway(t)
	ctx := context.Background()
	enriched := notionapi.Date(time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC))

	mc.On("QueryDatabase", ctx, "enrichment-db", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		if !ok || pf.Property != PropOriginalRecordID || pf.RichText == nil || pf.RichText.Equals != "p1" {
			return false
		}
		return req.PageSize == 1 && len(req.Sorts) == 1 &&
			req.Sorts[0].Property == PropEnrichmentDate && req.Sorts[0].Direction == notionapi.SortOrderDESC
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{
			ID: "rec-9",
			Properties: notionapi.Properties{
				PropOriginalRecordID: &notionapi.RichTextProperty{RichText: rt("p1")},
				PropEnrichmentStatus: &notionapi.SelectProperty{Select: notionapi.Option{Name: "Completed"}},
				PropEnrichmentDate:   &notionapi.DateProperty{Date: &notionapi.DateObject{Start: &enriched}},
			},
		}},
	}, nil).Once()

	stored, err := g.FindEnrichmentRecord(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "rec-9", stored.Record.ID)
	assert.Equal(t, model.StatusCompleted, stored.Record.Status)
	assert.Equal(t, "2026-02-20T00:00:00Z", stored.LastModified)
}

func TestGateway_FindEnrichmentRecord_None(t *testing.T) {
	g, mc, _ := newGateway(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "enrichment-db", mock.Anything).
		Return(&notionapi.DatabaseQueryResponse{}, nil).Once()

	stored, err := g.FindEnrichmentRecord(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestGateway_FindEnrichmentRecord_Error(t *testing.T) {
	g, mc, _ := newGateway(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "enrichment-db", mock.Anything).Return(nil, assert.AnError).Once()

	_, err := g.FindEnrichmentRecord(ctx, "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find enrichment record for p1")
}
