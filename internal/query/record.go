// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package query

import (
	"time"

	"github.com/ManuGH/dvrtalk/internal/rpc"
)

// Record is one item of a search result.
type Record map[string]any

// Records converts raw page items into records, skipping non-objects.
func Records(items []any) []Record {
	out := make([]Record, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// String returns the string value at key.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Time parses the canonical timestamp at key.
func (r Record) Time(key string) (time.Time, bool) {
	s, ok := r[key].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := rpc.ParseTime(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Project returns a record holding exactly keys; missing keys map to nil.
func (r Record) Project(keys ...string) Record {
	out := make(Record, len(keys))
	for _, k := range keys {
		out[k] = r[k]
	}
	return out
}
