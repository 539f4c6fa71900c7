// Package notionstore maps people and enrichment records onto Notion
// databases. The people database is the source of truth for contacts; the
// enrichment database holds one page per enrichment attempt.
package notionstore

import (
	"context"
	"errors"
	"net/http"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/pkg/notion"
)

// Databases names the Notion databases the store reads and writes.
type Databases struct {
	People     string
	Enrichment string
}

// Gateway reads people and their latest enrichment records.
type Gateway struct {
	client notion.Client
	dbs    Databases
	reg    *provider.Registry
	cache  *PeopleCache
}

// NewGateway creates a Gateway. cache may be nil to disable caching.
func NewGateway(client notion.Client, dbs Databases, reg *provider.Registry, cache *PeopleCache) *Gateway {
	return &Gateway{client: client, dbs: dbs, reg: reg, cache: cache}
}

// ListPeople returns every person in the people database.
func (g *Gateway) ListPeople(ctx context.Context) ([]model.Person, error) {
	if people, ok := g.cache.List(); ok {
		return people, nil
	}
	pages, err := notion.QueryAll(ctx, g.client, g.dbs.People, nil)
	if err != nil {
		return nil, eris.Wrap(err, "notionstore: list people")
	}
	people := peopleFromPages(pages)
	g.cache.SetAll(people)
	zap.L().Debug("notionstore: people loaded", zap.Int("count", len(people)))
	return people, nil
}

// ListPeopleByStatus returns the people whose Status equals status. The
// result is not cached as a list, but each person is.
func (g *Gateway) ListPeopleByStatus(ctx context.Context, status string) ([]model.Person, error) {
	pages, err := notion.QueryByStatus(ctx, g.client, g.dbs.People, status)
	if err != nil {
		return nil, eris.Wrap(err, "notionstore: list people by status")
	}
	people := peopleFromPages(pages)
	for _, p := range people {
		g.cache.Put(p)
	}
	return people, nil
}

// GetPerson returns one person. A missing or archived page is
// model.ErrNotFound.
func (g *Gateway) GetPerson(ctx context.Context, id string) (*model.Person, error) {
	if p, ok := g.cache.Get(id); ok {
		return &p, nil
	}
	page, err := g.client.GetPage(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, eris.Wrapf(model.ErrNotFound, "person %s", id)
		}
		return nil, eris.Wrapf(err, "notionstore: get person %s", id)
	}
	if page.Archived {
		return nil, eris.Wrapf(model.ErrNotFound, "person %s is archived", id)
	}
	p := PersonFromPage(*page)
	g.cache.Put(p)
	return &p, nil
}

// FindEnrichmentRecord returns the newest enrichment record for personID,
// or (nil, nil) when there is none.
func (g *Gateway) FindEnrichmentRecord(ctx context.Context, personID string) (*model.StoredRecord, error) {
	page, err := notion.QueryFirst(ctx, g.client, g.dbs.Enrichment, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropOriginalRecordID,
			RichText: &notionapi.TextFilterCondition{Equals: personID},
		},
		Sorts: []notionapi.SortObject{
			{Property: PropEnrichmentDate, Direction: notionapi.SortOrderDESC},
		},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notionstore: find enrichment record for %s", personID)
	}
	if page == nil {
		return nil, nil
	}
	rec := RecordFromPage(*page, g.reg.List())
	return &rec, nil
}

func peopleFromPages(pages []notionapi.Page) []model.Person {
	people := make([]model.Person, 0, len(pages))
	for _, page := range pages {
		if page.Archived {
			continue
		}
		people = append(people, PersonFromPage(page))
	}
	return people
}

func isNotFound(err error) bool {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound || apiErr.Code == "object_not_found"
	}
	return false
}
