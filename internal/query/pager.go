// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package query builds search payloads for the DVR and collects paged
// results.
package query

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/ManuGH/dvrtalk/internal/log"
	"github.com/ManuGH/dvrtalk/internal/metrics"
	"github.com/ManuGH/dvrtalk/internal/rpc"
)

// DefaultPageSize is the page-size hint sent with the first request.
const DefaultPageSize = 20

// HintMode controls when the page-size hint is sent.
type HintMode int

const (
	// HintFirstOnly sends "count" with the first request only; later pages use
	// the DVR's default page size.
	HintFirstOnly HintMode = iota
	// HintAlways sends "count" with every request.
	HintAlways
)

func (m HintMode) String() string {
	if m == HintAlways {
		return "always"
	}
	return "firstOnly"
}

// ParseHintMode accepts "firstOnly" or "always" (case-insensitive).
func ParseHintMode(s string) (HintMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "firstonly", "first_only":
		return HintFirstOnly, nil
	case "always":
		return HintAlways, nil
	default:
		return HintFirstOnly, fmt.Errorf("unknown hint mode %q", s)
	}
}

// Pager accumulates offset-paged results.
type Pager struct {
	PageSize int
	HintMode HintMode
}

// Fetch issues reqType with payload and follows the offset cursor while the
// response holds a non-empty target array. A positive limit stops paging once
// more than limit items are collected; the last page is kept whole. payload
// is copied and never modified.
func (p Pager) Fetch(ctx context.Context, sess rpc.Session, reqType string, payload map[string]any, target string, limit int) ([]any, error) {
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	logger := log.WithComponentFromContext(ctx, "query")

	req := maps.Clone(payload)
	if req == nil {
		req = make(map[string]any)
	}
	req["count"] = pageSize

	var results []any
	pages := 0
	for {
		body, err := rpc.Call(ctx, sess, reqType, req)
		if err != nil {
			metrics.RecordPagedQuery(reqType, pages, len(results))
			return nil, err
		}
		pages++

		items, _ := body[target].([]any)
		if len(items) == 0 {
			break
		}
		results = append(results, items...)
		logger.Debug().
			Str(log.FieldRequestType, reqType).
			Int(log.FieldPage, pages).
			Int(log.FieldCount, len(results)).
			Msg("page received")

		if limit > 0 && len(results) > limit {
			break
		}
		if p.HintMode == HintFirstOnly {
			delete(req, "count")
		}
		req["offset"] = len(results)
	}

	metrics.RecordPagedQuery(reqType, pages, len(results))
	if results == nil {
		results = []any{}
	}
	return results, nil
}
