package notionstore

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
)

// ImportKeyColumns are tried in order to deduplicate imported rows.
var ImportKeyColumns = []string{PropPrimaryEmail, "Email", PropLinkedIn, PropName}

// headerAliases maps lower-cased CSV headers onto person properties.
var headerAliases = map[string]string{
	"name":             PropName,
	"full name":        PropName,
	"primary email":    PropPrimaryEmail,
	"email":            PropPrimaryEmail,
	"personal email":   PropPersonalEmail,
	"phone":            PropPhone,
	"employer":         PropEmployer,
	"company":          PropEmployer,
	"position":         PropPosition,
	"title":            PropPosition,
	"industry":         PropIndustry,
	"residence":        PropCity,
	"city":             PropCity,
	"state":            PropState,
	"country":          PropCountry,
	"linkedin profile": PropLinkedIn,
	"linkedin":         PropLinkedIn,
	"linkedin url":     PropLinkedIn,
	"military":         PropMilitary,
	"veteran":          PropMilitary,
}

// PersonFromRow maps a CSV row onto a person. Unknown columns are ignored.
func PersonFromRow(row map[string]string) model.Person {
	var p model.Person
	for header, v := range row {
		prop, ok := headerAliases[strings.ToLower(strings.TrimSpace(header))]
		if !ok || v == "" {
			continue
		}
		switch prop {
		case PropName:
			p.Name = strings.Trim(v, `"`)
		case PropPrimaryEmail:
			p.PrimaryEmail = v
		case PropPersonalEmail:
			p.PersonalEmail = v
		case PropPhone:
			p.Phone = v
		case PropEmployer:
			p.Employer = v
		case PropPosition:
			p.Position = v
		case PropIndustry:
			p.Industry = v
		case PropCity:
			p.City = v
		case PropState:
			p.State = v
		case PropCountry:
			p.Country = v
		case PropLinkedIn:
			p.LinkedInURL = normalizeURL(v)
		case PropMilitary:
			b, err := strconv.ParseBool(strings.ToLower(v))
			p.Military = (err == nil && b) || strings.EqualFold(v, "yes") || strings.EqualFold(v, "y")
		}
	}
	return p
}

// normalizeURL ensures a profile link has a scheme.
func normalizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "://") {
		return s
	}
	return "https://" + s
}

// ImportPeople creates a people-database page per row with the given
// Status. Rows without a name are skipped. It returns the number created.
func ImportPeople(ctx context.Context, w *Writer, rows []map[string]string, status string) (int, error) {
	created := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return created, eris.Wrap(err, "notionstore: import cancelled")
		}
		p := PersonFromRow(row)
		if p.Name == "" {
			zap.L().Debug("notionstore: import row without name skipped")
			continue
		}
		p.Status = status
		if _, err := w.CreatePerson(ctx, p); err != nil {
			return created, eris.Wrap(err, "notionstore: import people")
		}
		created++
	}
	return created, nil
}
