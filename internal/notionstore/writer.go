package notionstore

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/pkg/notion"
)

// Writer persists enrichment records and updates person pages.
type Writer struct {
	client notion.Client
	dbs    Databases
	reg    *provider.Registry
	cache  *PeopleCache
}

// NewWriter creates a Writer. It invalidates cached people it changes.
func NewWriter(client notion.Client, dbs Databases, reg *provider.Registry, cache *PeopleCache) *Writer {
	return &Writer{client: client, dbs: dbs, reg: reg, cache: cache}
}

// CreateEnrichmentRecord writes rec as a new enrichment-database page and
// returns the page ID.
func (w *Writer) CreateEnrichmentRecord(ctx context.Context, p model.Person, rec *model.EnrichmentRecord) (string, error) {
	page, err := w.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(w.dbs.Enrichment),
		},
		Properties: RecordProperties(p, rec, w.reg.List()),
	})
	if err != nil {
		return "", eris.Wrapf(err, "notionstore: create enrichment record for %s", p.ID)
	}
	id := string(page.ID)
	zap.L().Info("notionstore: enrichment record created",
		zap.String("person_id", p.ID),
		zap.String("record_id", id),
		zap.String("status", string(rec.Status)),
	)
	return id, nil
}

// UpdatePersonStatus sets the person's Status.
func (w *Writer) UpdatePersonStatus(ctx context.Context, personID string, status model.EnrichmentStatus) error {
	defer w.cache.Invalidate(personID)
	_, err := w.client.UpdatePage(ctx, personID, &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			PropStatus: notionapi.StatusProperty{
				Type:   notionapi.PropertyTypeStatus,
				Status: notionapi.Status{Name: string(status)},
			},
		},
	})
	if err != nil {
		return eris.Wrapf(err, "notionstore: update status of %s", personID)
	}
	return nil
}

// Link points the person's Enrichment Record relation at recordID. Notion
// mirrors the relation on the record side.
func (w *Writer) Link(ctx context.Context, personID, recordID string) error {
	defer w.cache.Invalidate(personID)
	_, err := w.client.UpdatePage(ctx, personID, &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			PropRecordLink: notionapi.RelationProperty{
				Type:     notionapi.PropertyTypeRelation,
				Relation: []notionapi.Relation{{ID: notionapi.PageID(recordID)}},
			},
		},
	})
	if err != nil {
		return eris.Wrapf(err, "notionstore: link %s to %s", personID, recordID)
	}
	return nil
}

// CreatePerson adds a person to the people database and returns the page ID.
func (w *Writer) CreatePerson(ctx context.Context, p model.Person) (string, error) {
	page, err := w.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(w.dbs.People),
		},
		Properties: PersonProperties(p),
	})
	if err != nil {
		return "", eris.Wrapf(err, "notionstore: create person %q", p.Name)
	}
	w.cache.InvalidateAll()
	return string(page.ID), nil
}
