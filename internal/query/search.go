// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package query

import (
	"context"
	"fmt"

	"github.com/ManuGH/dvrtalk/internal/rpc"
)

// Request types understood by the DVR.
const (
	TypeRecordingSearch           = "recordingSearch"
	TypeRecordingFolderItemSearch = "recordingFolderItemSearch"
	TypeOfferSearch               = "offerSearch"
	TypeContentSearch             = "contentSearch"
	TypeCollectionSearch          = "collectionSearch"
	TypeChannelSearch             = "channelSearch"
	TypeKeyEventSend              = "keyEventSend"
)

// Level of detail values.
const (
	DetailLow    = "low"
	DetailMedium = "medium"
	DetailHigh   = "high"
)

// Searcher runs searches against one session, scoped to the session's body id.
type Searcher struct {
	sess          rpc.Session
	pager         Pager
	levelOfDetail string
}

// NewSearcher returns a Searcher using pager. Searches default to medium detail.
func NewSearcher(sess rpc.Session, pager Pager) *Searcher {
	return &Searcher{sess: sess, pager: pager, levelOfDetail: DetailMedium}
}

// WithLevelOfDetail returns a copy of s using level.
func (s *Searcher) WithLevelOfDetail(level string) *Searcher {
	cp := *s
	cp.levelOfDetail = level
	return &cp
}

func (s *Searcher) payload(f *Filter) map[string]any {
	p := f.Payload()
	p["bodyId"] = s.sess.BodyID()
	p["levelOfDetail"] = s.levelOfDetail
	return p
}

func (s *Searcher) fetch(ctx context.Context, reqType string, payload map[string]any, target string, limit int) ([]Record, error) {
	items, err := s.pager.Fetch(ctx, s.sess, reqType, payload, target, limit)
	if err != nil {
		return nil, err
	}
	return Records(items), nil
}

// Recordings lists in-progress and scheduled recordings.
func (s *Searcher) Recordings(ctx context.Context, f *Filter, limit int) ([]Record, error) {
	p := s.payload(f)
	p["state"] = []string{"inProgress", "scheduled"}
	return s.fetch(ctx, TypeRecordingSearch, p, "recording", limit)
}

// FolderItems lists recording folder items with folders flattened.
func (s *Searcher) FolderItems(ctx context.Context, f *Filter, limit int) ([]Record, error) {
	p := s.payload(f)
	p["flatten"] = true
	return s.fetch(ctx, TypeRecordingFolderItemSearch, p, "recordingFolderItem", limit)
}

// Offers lists airings matching f.
func (s *Searcher) Offers(ctx context.Context, f *Filter, limit int) ([]Record, error) {
	return s.fetch(ctx, TypeOfferSearch, s.payload(f), "offer", limit)
}

// Contents lists content records matching f.
func (s *Searcher) Contents(ctx context.Context, f *Filter, limit int) ([]Record, error) {
	return s.fetch(ctx, TypeContentSearch, s.payload(f), "content", limit)
}

// Collections lists series and movie collections matching f.
func (s *Searcher) Collections(ctx context.Context, f *Filter, limit int) ([]Record, error) {
	p := s.payload(f)
	p["omitPgdImages"] = true
	return s.fetch(ctx, TypeCollectionSearch, p, "collection", limit)
}

// Channels lists the device's channel lineup.
func (s *Searcher) Channels(ctx context.Context, f *Filter) ([]Record, error) {
	return s.fetch(ctx, TypeChannelSearch, s.payload(f), "channel", 0)
}

// SendKey presses a remote-control key and returns the response type.
func (s *Searcher) SendKey(ctx context.Context, event string) (string, error) {
	body, err := rpc.Call(ctx, s.sess, TypeKeyEventSend, map[string]any{
		"bodyId": s.sess.BodyID(),
		"event":  event,
	})
	if err != nil {
		return "", err
	}
	t := body.Type()
	if t == "" {
		return "", &rpc.Error{Sentinel: rpc.ErrBadResponse, Op: TypeKeyEventSend, Text: fmt.Sprintf("no type for key %q", event)}
	}
	return t, nil
}
