// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ManuGH/dvrtalk/internal/calendar"
	"github.com/ManuGH/dvrtalk/internal/message"
)

// Recording is one upcoming or in-progress recording.
type Recording struct {
	Title     string
	ContentID string
}

// UnmarshalJSON decodes the [title, contentId] pair form.
func (r *Recording) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("recording: expected [title, contentId], got %d elements", len(pair))
	}
	r.Title, r.ContentID = pair[0], pair[1]
	return nil
}

// Detail describes one piece of content.
type Detail struct {
	Title        string  `json:"title"`
	Subtitle     *string `json:"subtitle"`
	SeasonNumber *int    `json:"seasonNumber"`
	EpisodeNum   []int   `json:"episodeNum"`
	Description  *string `json:"description"`
}

// String renders the detail the way it is read out to the user.
func (d Detail) String() string {
	desc := ""
	if d.Description != nil {
		desc = *d.Description
	}
	if d.SeasonNumber != nil && len(d.EpisodeNum) > 0 && d.Subtitle != nil && *d.Subtitle != "" {
		return fmt.Sprintf("%s (Season %d, Episode %d): %s.\n%s.\n", d.Title, *d.SeasonNumber, d.EpisodeNum[0], *d.Subtitle, desc)
	}
	return fmt.Sprintf("%s.\n%s\n", d.Title, desc)
}

// Offer is one scheduled airing.
type Offer struct {
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	ContentID string `json:"contentId"`
	OfferID   string `json:"offerId"`
	StartTime string `json:"startTime"`
	Channel   string `json:"channel"`
}

func decodeList[T any](items []any) ([]T, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode items: %w", ErrCommand, err)
	}
	return out, nil
}

// WhatsOn lists recordings for a date phrase; empty means today.
func (c *Client) WhatsOn(ctx context.Context, recTime string) ([]Recording, error) {
	if recTime == "" {
		recTime = calendar.PresentRef
	}
	items, err := c.ExecList(ctx, message.New("WHATSON", map[string]any{"rec_time": recTime}), "recordings")
	if err != nil {
		return nil, err
	}
	return decodeList[Recording](items)
}

// TellAbout fetches details for content ids.
func (c *Client) TellAbout(ctx context.Context, contentIDs ...string) ([]Detail, error) {
	items, err := c.ExecList(ctx, message.New("TELLABOUT", map[string]any{"content_ids": contentIDs}), "details")
	if err != nil {
		return nil, err
	}
	return decodeList[Detail](items)
}

// WhenIsQuery names a show and optionally a channel and date phrase.
type WhenIsQuery struct {
	Title         string
	ChannelName   string
	ChannelNumber string
	RecTime       string
}

// WhenIs looks up upcoming airings.
func (c *Client) WhenIs(ctx context.Context, q WhenIsQuery) ([]Offer, error) {
	fields := map[string]any{"title": q.Title, "c_name": nil, "c_num": nil}
	if q.ChannelName != "" {
		fields["c_name"] = q.ChannelName
	}
	if q.ChannelNumber != "" {
		fields["c_num"] = q.ChannelNumber
	}
	if q.RecTime != "" {
		fields["rec_time"] = q.RecTime
	}
	items, err := c.ExecList(ctx, message.New("WHENIS", fields), "offers")
	if err != nil {
		return nil, err
	}
	return decodeList[Offer](items)
}

// Pause pauses playback and returns the DVR's result status.
func (c *Client) Pause(ctx context.Context) (string, error) { return c.key(ctx, "PAUSE") }

// Resume resumes playback.
func (c *Client) Resume(ctx context.Context) (string, error) { return c.key(ctx, "RESUME") }

// Advance skips ahead.
func (c *Client) Advance(ctx context.Context) (string, error) { return c.key(ctx, "ADVANCE") }

// key accepts any status but ERROR, since key presses echo the DVR's own
// result type.
func (c *Client) key(ctx context.Context, cmd string) (string, error) {
	req := message.New(cmd, nil)
	if err := c.Send(ctx, req); err != nil {
		return "", err
	}
	resp, err := c.t.WaitForMessage(ctx, c.opts.ResponseTimeout)
	if err != nil {
		return "", err
	}
	if resp.Status() == message.StatusError {
		return "", check(req, resp)
	}
	if got, _ := resp.Cmd(); got != cmd {
		return "", check(req, resp)
	}
	return resp.Status(), nil
}

// JoinList renders items as an Oxford-comma list: "a", "a and b",
// "a, b, and c".
func JoinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
