// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package query

import (
	"maps"
	"time"

	"github.com/ManuGH/dvrtalk/internal/rpc"
)

// Filter accumulates search predicates in the DVR's payload vocabulary.
// The zero value is not usable; call NewFilter.
type Filter struct {
	fields map[string]any
}

// NewFilter returns an empty filter.
func NewFilter() *Filter {
	return &Filter{fields: make(map[string]any)}
}

func (f *Filter) keyword(field, value string, exact bool) *Filter {
	key := field
	if !exact {
		key += "Keyword"
	}
	f.fields[key] = value
	return f
}

// ByTitle matches titles by keyword, or exactly when exact is set.
func (f *Filter) ByTitle(title string, exact bool) *Filter {
	return f.keyword("title", title, exact)
}

// BySubtitle matches episode titles.
func (f *Filter) BySubtitle(subtitle string, exact bool) *Filter {
	return f.keyword("subtitle", subtitle, exact)
}

// ByDescription matches descriptions.
func (f *Filter) ByDescription(description string, exact bool) *Filter {
	return f.keyword("description", description, exact)
}

// ByCredit matches cast and crew.
func (f *Filter) ByCredit(credit string, exact bool) *Filter {
	return f.keyword("credit", credit, exact)
}

// ByStartTime bounds the start time. Nil bounds are left open.
func (f *Filter) ByStartTime(min, max *time.Time) *Filter {
	f.timeRange("minStartTime", "maxStartTime", min, max)
	return f
}

// ByEndTime bounds the end time. Nil bounds are left open.
func (f *Filter) ByEndTime(min, max *time.Time) *Filter {
	f.timeRange("minEndTime", "maxEndTime", min, max)
	return f
}

func (f *Filter) timeRange(minKey, maxKey string, min, max *time.Time) {
	if min != nil {
		f.fields[minKey] = rpc.FormatTime(*min)
	}
	if max != nil {
		f.fields[maxKey] = rpc.FormatTime(*max)
	}
}

// ByContentID accepts a raw content id or a record holding "contentId".
func (f *Filter) ByContentID(v any) *Filter {
	f.fields["contentId"] = identifier(v, "contentId")
	return f
}

// ByCollectionID accepts a raw collection id or a record holding "collectionId".
func (f *Filter) ByCollectionID(v any) *Filter {
	f.fields["collectionId"] = identifier(v, "collectionId")
	return f
}

// ByStationID accepts a raw station id or a record holding "stationId".
func (f *Filter) ByStationID(v any) *Filter {
	f.fields["stationId"] = identifier(v, "stationId")
	return f
}

// OrderBy sets the single sort field.
func (f *Filter) OrderBy(field string) *Filter {
	f.fields["orderBy"] = field
	return f
}

// WithResponseTemplate limits the fields returned for typeName.
func (f *Filter) WithResponseTemplate(typeName string, fields ...string) *Filter {
	tmpl := map[string]any{
		"type":      "responseTemplate",
		"typeName":  typeName,
		"fieldName": append([]string(nil), fields...),
	}
	existing, _ := f.fields["responseTemplate"].([]any)
	f.fields["responseTemplate"] = append(append([]any(nil), existing...), tmpl)
	return f
}

// Payload returns a shallow copy of the accumulated predicates. Later calls
// on f do not affect a returned snapshot.
func (f *Filter) Payload() map[string]any {
	if f == nil {
		return map[string]any{}
	}
	return maps.Clone(f.fields)
}

func identifier(v any, key string) any {
	switch r := v.(type) {
	case map[string]any:
		return r[key]
	case Record:
		return r[key]
	default:
		return v
	}
}
