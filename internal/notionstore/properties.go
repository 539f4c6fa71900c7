package notionstore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jomei/notionapi"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
)

// People database properties.
const (
	PropName          = "Name"
	PropStatus        = "Status"
	PropPrimaryEmail  = "Primary Email"
	PropPersonalEmail = "Personal Email"
	PropPhone         = "Phone"
	PropEmployer      = "Employer"
	PropPosition      = "Position"
	PropIndustry      = "Industry"
	PropCity          = "Residence"
	PropState         = "State"
	PropCountry       = "Country"
	PropLinkedIn      = "LinkedIn Profile"
	PropMilitary      = "Military"
	PropRecordLink    = "Enrichment Record"
)

// Enrichment database properties.
const (
	PropOriginalRecordID = "Original Record ID"
	PropEnrichmentDate   = "Enrichment Date"
	PropEnrichmentStatus = "Enrichment Status"
	PropConfidence       = "Data Confidence"
	PropCompleteness     = "Completeness Score"
	PropDataSources      = "Data Sources"
	PropNotes            = "Enrichment Notes"
)

// MaxTextLength is Notion's limit for one rich_text segment.
const MaxTextLength = 2000

const notesSeparator = "; "

// acronyms keep their casing in column names.
var acronyms = map[string]string{
	"url":      "URL",
	"linkedin": "LinkedIn",
}

// ColumnName returns the enrichment-database column for a provider field,
// e.g. ("Apollo", "email_verified") -> "Apollo Email Verified".
func ColumnName(prefix, field string) string {
	caser := cases.Title(language.English)
	words := strings.Split(field, "_")
	for i, w := range words {
		if a, ok := acronyms[w]; ok {
			words[i] = a
			continue
		}
		words[i] = caser.String(w)
	}
	return prefix + " " + strings.Join(words, " ")
}

type columnKind int

const (
	kindText columnKind = iota
	kindEmail
	kindPhone
	kindCheckbox
	kindNumber
	kindURL
)

// kindOf types a column by its name's last word.
func kindOf(column string) columnKind {
	last := column
	if i := strings.LastIndexByte(column, ' '); i >= 0 {
		last = column[i+1:]
	}
	switch last {
	case "Email":
		return kindEmail
	case "Phone", "Mobile":
		return kindPhone
	case "Verified":
		return kindCheckbox
	case "Count", "Mentions", "Connections", "Followers":
		return kindNumber
	case "URL":
		return kindURL
	default:
		return kindText
	}
}

// fieldProperty builds the typed property for a provider value. It returns
// false when the value does not fit the column's type.
func fieldProperty(column string, v any) (notionapi.Property, bool) {
	switch kindOf(column) {
	case kindEmail:
		return notionapi.EmailProperty{Type: notionapi.PropertyTypeEmail, Email: stringify(v)}, true
	case kindPhone:
		return notionapi.PhoneNumberProperty{Type: notionapi.PropertyTypePhoneNumber, PhoneNumber: stringify(v)}, true
	case kindCheckbox:
		b, ok := v.(bool)
		return notionapi.CheckboxProperty{Type: notionapi.PropertyTypeCheckbox, Checkbox: b}, ok
	case kindNumber:
		n, ok := toFloat(v)
		return notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: n}, ok
	case kindURL:
		return notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: stringify(v)}, true
	default:
		return richText(stringify(v)), true
	}
}

// RecordProperties lays out an enrichment record as an enrichment-database
// page. Unfilled provider fields are omitted.
func RecordProperties(p model.Person, rec *model.EnrichmentRecord, descriptors []provider.Descriptor) notionapi.Properties {
	created := notionapi.Date(rec.CreatedAt)
	props := notionapi.Properties{
		PropName:             title(p.DisplayName()),
		PropOriginalRecordID: richText(p.ID),
		PropEnrichmentDate: notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &created},
		},
		PropEnrichmentStatus: selectOption(string(rec.Status)),
		PropConfidence:       selectOption(string(rec.Confidence)),
		PropCompleteness: notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(rec.CompletenessScore),
		},
	}

	if len(rec.DataSources) > 0 {
		opts := make([]notionapi.Option, 0, len(rec.DataSources))
		for _, s := range rec.DataSources {
			opts = append(opts, notionapi.Option{Name: s})
		}
		props[PropDataSources] = notionapi.MultiSelectProperty{
			Type:        notionapi.PropertyTypeMultiSelect,
			MultiSelect: opts,
		}
	}

	for _, d := range descriptors {
		result := rec.Result(d.ID)
		for _, field := range d.Fields {
			if !result.Filled(field) {
				continue
			}
			column := ColumnName(d.ColumnPrefix, field)
			if prop, ok := fieldProperty(column, result[field]); ok {
				props[column] = prop
			}
		}
	}

	if len(rec.Errors) > 0 {
		props[PropNotes] = richText(strings.Join(rec.Errors, notesSeparator))
	}
	return props
}

// PersonProperties lays out a person as a people-database page.
func PersonProperties(p model.Person) notionapi.Properties {
	props := notionapi.Properties{PropName: title(p.Name)}
	if p.Status != "" {
		props[PropStatus] = notionapi.StatusProperty{
			Type:   notionapi.PropertyTypeStatus,
			Status: notionapi.Status{Name: p.Status},
		}
	}
	if p.PrimaryEmail != "" {
		props[PropPrimaryEmail] = notionapi.EmailProperty{Type: notionapi.PropertyTypeEmail, Email: p.PrimaryEmail}
	}
	if p.PersonalEmail != "" {
		props[PropPersonalEmail] = notionapi.EmailProperty{Type: notionapi.PropertyTypeEmail, Email: p.PersonalEmail}
	}
	if p.Phone != "" {
		props[PropPhone] = notionapi.PhoneNumberProperty{Type: notionapi.PropertyTypePhoneNumber, PhoneNumber: p.Phone}
	}
	if p.LinkedInURL != "" {
		props[PropLinkedIn] = notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: p.LinkedInURL}
	}
	for name, v := range map[string]string{
		PropEmployer: p.Employer,
		PropPosition: p.Position,
		PropIndustry: p.Industry,
		PropCity:     p.City,
		PropState:    p.State,
		PropCountry:  p.Country,
	} {
		if v != "" {
			props[name] = richText(v)
		}
	}
	if p.Military {
		props[PropMilitary] = notionapi.CheckboxProperty{Type: notionapi.PropertyTypeCheckbox, Checkbox: true}
	}
	return props
}

// PersonFromPage reads a people-database page.
func PersonFromPage(page notionapi.Page) model.Person {
	props := page.Properties
	return model.Person{
		ID:            string(page.ID),
		Name:          titleText(props[PropName]),
		PrimaryEmail:  emailValue(props[PropPrimaryEmail]),
		PersonalEmail: emailValue(props[PropPersonalEmail]),
		Phone:         phoneValue(props[PropPhone]),
		Employer:      textValue(props[PropEmployer]),
		Position:      textValue(props[PropPosition]),
		Industry:      textValue(props[PropIndustry]),
		City:          textValue(props[PropCity]),
		State:         textValue(props[PropState]),
		Country:       textValue(props[PropCountry]),
		LinkedInURL:   urlValue(props[PropLinkedIn]),
		Military:      checkboxValue(props[PropMilitary]),
		Status:        statusValue(props[PropStatus]),
		LastEdited:    page.LastEditedTime,
	}
}

// RecordFromPage reads an enrichment-database page. LastModified is the
// Enrichment Date, or the page's last edit time when that is unset.
func RecordFromPage(page notionapi.Page, descriptors []provider.Descriptor) model.StoredRecord {
	props := page.Properties
	rec := model.EnrichmentRecord{
		ID:                string(page.ID),
		PersonID:          textValue(props[PropOriginalRecordID]),
		PersonName:        titleText(props[PropName]),
		Results:           map[model.Provider]model.NormalizedResult{},
		Fields:            model.NormalizedResult{},
		DataSources:       multiSelectValue(props[PropDataSources]),
		CompletenessScore: int(numberValue(props[PropCompleteness])),
		Confidence:        model.ConfidenceLevel(selectValue(props[PropConfidence])),
		Status:            model.EnrichmentStatus(selectValue(props[PropEnrichmentStatus])),
		Errors:            []string{},
	}
	if notes := textValue(props[PropNotes]); notes != "" {
		rec.Errors = strings.Split(notes, notesSeparator)
	}

	for _, d := range descriptors {
		result := model.NormalizedResult{}
		for _, field := range d.Fields {
			column := ColumnName(d.ColumnPrefix, field)
			prop, ok := props[column]
			if !ok {
				continue
			}
			if v, ok := propertyValue(prop); ok {
				result[field] = v
				if _, taken := rec.Fields[field]; !taken {
					rec.Fields[field] = v
				}
			}
		}
		if !result.Empty() {
			rec.Results[d.ID] = result
		}
	}

	stored := model.StoredRecord{Record: rec}
	if t, ok := dateValue(props[PropEnrichmentDate]); ok {
		stored.Record.CreatedAt = t
		stored.LastModified = t.Format(time.RFC3339Nano)
	} else if !page.LastEditedTime.IsZero() {
		stored.LastModified = page.LastEditedTime.Format(time.RFC3339Nano)
	}
	return stored
}

func title(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}}},
	}
}

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: truncate(s, MaxTextLength)}}},
	}
}

func selectOption(name string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Type: notionapi.PropertyTypeSelect, Select: notionapi.Option{Name: name}}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// stringify renders a field value as column text.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	default:
		return 0, false
	}
}

func plainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, r := range rt {
		switch {
		case r.PlainText != "":
			b.WriteString(r.PlainText)
		case r.Text != nil:
			b.WriteString(r.Text.Content)
		}
	}
	return strings.TrimSpace(b.String())
}

func titleText(p notionapi.Property) string {
	switch t := p.(type) {
	case *notionapi.TitleProperty:
		return plainText(t.Title)
	case notionapi.TitleProperty:
		return plainText(t.Title)
	}
	return ""
}

func textValue(p notionapi.Property) string {
	switch t := p.(type) {
	case *notionapi.RichTextProperty:
		return plainText(t.RichText)
	case notionapi.RichTextProperty:
		return plainText(t.RichText)
	}
	return ""
}

func emailValue(p notionapi.Property) string {
	switch t := p.(type) {
	case *notionapi.EmailProperty:
		return strings.TrimSpace(t.Email)
	case notionapi.EmailProperty:
		return strings.TrimSpace(t.Email)
	}
	return ""
}

func phoneValue(p notionapi.Property) string {
	switch t := p.(type) {
	case *notionapi.PhoneNumberProperty:
		return strings.TrimSpace(t.PhoneNumber)
	case notionapi.PhoneNumberProperty:
		return strings.TrimSpace(t.PhoneNumber)
	}
	return ""
}

func urlValue(p notionapi.Property) string {
	switch t := p.(type) {
	case *notionapi.URLProperty:
		return strings.TrimSpace(t.URL)
	case notionapi.URLProperty:
		return strings.TrimSpace(t.URL)
	}
	return ""
}

func checkboxValue(p notionapi.Property) bool {
	switch t := p.(type) {
	case *notionapi.CheckboxProperty:
		return t.Checkbox
	case notionapi.CheckboxProperty:
		return t.Checkbox
	}
	return false
}

func statusValue(p notionapi.Property) string {
	switch t := p.(type) {
	case *notionapi.StatusProperty:
		return t.Status.Name
	case notionapi.StatusProperty:
		return t.Status.Name
	}
	return ""
}

func selectValue(p notionapi.Property) string {
	switch t := p.(type) {
	case *notionapi.SelectProperty:
		return t.Select.Name
	case notionapi.SelectProperty:
		return t.Select.Name
	}
	return ""
}

func multiSelectValue(p notionapi.Property) []string {
	var opts []notionapi.Option
	switch t := p.(type) {
	case *notionapi.MultiSelectProperty:
		opts = t.MultiSelect
	case notionapi.MultiSelectProperty:
		opts = t.MultiSelect
	}
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Name)
	}
	return out
}

func numberValue(p notionapi.Property) float64 {
	switch t := p.(type) {
	case *notionapi.NumberProperty:
		return t.Number
	case notionapi.NumberProperty:
		return t.Number
	}
	return 0
}

func dateValue(p notionapi.Property) (time.Time, bool) {
	var d *notionapi.DateObject
	switch t := p.(type) {
	case *notionapi.DateProperty:
		d = t.Date
	case notionapi.DateProperty:
		d = t.Date
	}
	if d == nil || d.Start == nil {
		return time.Time{}, false
	}
	return time.Time(*d.Start), true
}

// propertyValue reads a provider column back into a field value. Whole
// numbers come back as int.
func propertyValue(p notionapi.Property) (any, bool) {
	switch p.(type) {
	case *notionapi.EmailProperty, notionapi.EmailProperty:
		v := emailValue(p)
		return v, v != ""
	case *notionapi.PhoneNumberProperty, notionapi.PhoneNumberProperty:
		v := phoneValue(p)
		return v, v != ""
	case *notionapi.URLProperty, notionapi.URLProperty:
		v := urlValue(p)
		return v, v != ""
	case *notionapi.CheckboxProperty, notionapi.CheckboxProperty:
		return checkboxValue(p), true
	case *notionapi.NumberProperty, notionapi.NumberProperty:
		n := numberValue(p)
		if n == math.Trunc(n) {
			return int(n), true
		}
		return n, true
	case *notionapi.RichTextProperty, notionapi.RichTextProperty:
		v := textValue(p)
		return v, v != ""
	}
	return nil, false
}
