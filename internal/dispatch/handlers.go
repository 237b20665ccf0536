// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/dvrtalk/internal/calendar"
	"github.com/ManuGH/dvrtalk/internal/log"
	"github.com/ManuGH/dvrtalk/internal/message"
	"github.com/ManuGH/dvrtalk/internal/metrics"
	"github.com/ManuGH/dvrtalk/internal/query"
	"github.com/ManuGH/dvrtalk/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// Command message fields.
const (
	FieldRecTime    = "rec_time"
	FieldContentIDs = "content_ids"
	FieldTitle      = "title"
	FieldChannel    = "c_name"
	FieldChannelNum = "c_num"
)

const offerLimit = 10

var (
	recordingFields = []string{"title", "contentId", "scheduledStartTime"}
	contentFields   = []string{"title", "subtitle", "seasonNumber", "episodeNum", "description"}
	offerFields     = []string{"title", "subtitle", "contentId", "offerId", "startTime", "channel"}
)

// keyHandler presses a remote key and echoes the DVR's result type.
func (d *Dispatcher) keyHandler(event string) HandlerFunc {
	return func(ctx context.Context, msg message.Message) (message.Message, error) {
		cmd, _ := msg.Cmd()
		var result string
		err := d.withSearcher(ctx, func(s *query.Searcher) error {
			var err error
			result, err = s.SendKey(ctx, event)
			return err
		})
		if err != nil {
			return nil, commandError(cmd, err)
		}
		return message.Response(cmd, strings.ToUpper(result)), nil
	}
}

// resolveRange resolves the rec_time field, defaulting to today, and widens
// single instants to one day.
func (d *Dispatcher) resolveRange(msg message.Message) (calendar.Range, error) {
	token := msg.OptionalString(FieldRecTime)
	if token == "" {
		token = calendar.PresentRef
	}
	res, err := d.opts.Resolver.Resolve(token)
	if err != nil {
		return calendar.Range{}, err
	}
	return res.WidenDays(1), nil
}

func (d *Dispatcher) handleWhatsOn(ctx context.Context, msg message.Message) (message.Message, error) {
	cmd, _ := msg.Cmd()
	rng, err := d.resolveRange(msg)
	if err != nil {
		return nil, err
	}
	logger := log.WithContext(ctx, d.logger)
	logger.Debug().Stringer("range", rng).Msg("listing recordings")

	var recs []query.Record
	err = d.withSearcher(ctx, func(s *query.Searcher) error {
		f := query.NewFilter().WithResponseTemplate("recording", recordingFields...)
		recs, err = s.Recordings(ctx, f, 0)
		return err
	})
	if err != nil {
		return nil, commandError(cmd, err)
	}

	result := make([][]any, 0, len(recs))
	for _, r := range recs {
		start, ok := r.Time("scheduledStartTime")
		if !ok || !rng.Contains(start) {
			continue
		}
		result = append(result, []any{r["title"], r["contentId"]})
	}
	return message.Success(cmd, "recordings", result), nil
}

func (d *Dispatcher) handleTellAbout(ctx context.Context, msg message.Message) (message.Message, error) {
	cmd, _ := msg.Cmd()
	ids := msg.Strings(FieldContentIDs)
	if ids == nil {
		return nil, fmt.Errorf("%w: %s requires %s", ErrInvalidCommand, cmd, FieldContentIDs)
	}

	details := make([]query.Record, 0, len(ids))
	err := d.withSearcher(ctx, func(s *query.Searcher) error {
		for _, id := range ids {
			f := query.NewFilter().ByContentID(id).WithResponseTemplate("content", contentFields...)
			recs, err := s.Contents(ctx, f, 1)
			if err != nil {
				return err
			}
			var rec query.Record
			if len(recs) > 0 {
				rec = recs[0]
			}
			details = append(details, rec.Project(contentFields...))
		}
		return nil
	})
	if err != nil {
		return nil, commandError(cmd, err)
	}
	return message.Success(cmd, "details", details), nil
}

func (d *Dispatcher) handleWhenIs(ctx context.Context, msg message.Message) (message.Message, error) {
	cmd, _ := msg.Cmd()
	title, ok := msg.String(FieldTitle)
	if !ok || strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: %s requires %s", ErrInvalidCommand, cmd, FieldTitle)
	}
	f := query.NewFilter().ByTitle(title, false)

	name, number := msg.OptionalString(FieldChannel), msg.OptionalString(FieldChannelNum)
	if name != "" || number != "" {
		ch, score, err := d.dir.MatchStation(name, number)
		if err != nil {
			return nil, err
		}
		metrics.ObserveStationMatch(int(score))
		trace.SpanFromContext(ctx).SetAttributes(telemetry.ChannelAttributes(ch.StationID, int(score))...)
		logger := log.WithContext(ctx, d.logger)
		logger.Debug().
			Str(log.FieldStationID, ch.StationID).
			Int(log.FieldScore, int(score)).
			Str("channel", ch.Name).
			Msg("matched channel")
		f.ByStationID(ch.StationID)
	}

	rng, err := d.resolveRange(msg)
	if err != nil {
		return nil, err
	}
	from, to := rng.Bounds()
	f.ByStartTime(&from, &to)

	var recs []query.Record
	err = d.withSearcher(ctx, func(s *query.Searcher) error {
		recs, err = s.Offers(ctx, f, offerLimit)
		return err
	})
	if err != nil {
		return nil, commandError(cmd, err)
	}

	offers := make([]query.Record, 0, len(recs))
	for _, r := range recs {
		o := r.Project(offerFields...)
		if ch, ok := o["channel"].(map[string]any); ok {
			o["channel"] = ch["name"]
		}
		offers = append(offers, o)
	}
	return message.Success(cmd, "offers", offers), nil
}
