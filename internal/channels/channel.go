// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package channels holds the DVR's channel lineup and resolves spoken
// channel names and numbers to station ids.
package channels

import (
	"github.com/ManuGH/dvrtalk/internal/query"
)

// Channel is one lineup entry as reported by the DVR's channel search.
type Channel struct {
	Number     string `json:"channelNumber"`
	Name       string `json:"name"`
	StationID  string `json:"stationId"`
	IsReceived bool   `json:"isReceived"`
	IsHD       bool   `json:"isHdtv"`
}

// FromRecords converts channel search records, skipping entries without a
// station id.
func FromRecords(recs []query.Record) []Channel {
	out := make([]Channel, 0, len(recs))
	for _, r := range recs {
		ch := Channel{
			Number:    r.String("channelNumber"),
			Name:      r.String("name"),
			StationID: r.String("stationId"),
		}
		ch.IsReceived, _ = r["isReceived"].(bool)
		ch.IsHD, _ = r["isHdtv"].(bool)
		if ch.StationID == "" {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// Directory is an immutable lineup of received channels indexed by number
// and name. Later duplicates replace earlier ones in the indexes, matching
// the lineup order.
type Directory struct {
	channels []Channel
	byNumber map[string]Channel
	byName   map[string]Channel
}

// NewDirectory keeps the received channels of all in order.
func NewDirectory(all []Channel) *Directory {
	d := &Directory{
		byNumber: make(map[string]Channel),
		byName:   make(map[string]Channel),
	}
	for _, ch := range all {
		if !ch.IsReceived {
			continue
		}
		d.channels = append(d.channels, ch)
		d.byNumber[ch.Number] = ch
		d.byName[ch.Name] = ch
	}
	return d
}

// Len returns the number of received channels.
func (d *Directory) Len() int { return len(d.channels) }

// All returns a copy of the received channels in lineup order.
func (d *Directory) All() []Channel {
	return append([]Channel(nil), d.channels...)
}

// ByNumber looks up a channel by its exact number.
func (d *Directory) ByNumber(number string) (Channel, bool) {
	ch, ok := d.byNumber[number]
	return ch, ok
}

// ByName looks up a channel by its exact name.
func (d *Directory) ByName(name string) (Channel, bool) {
	ch, ok := d.byName[name]
	return ch, ok
}

// HD returns the HD channels in lineup order.
func (d *Directory) HD() []Channel {
	var out []Channel
	for _, ch := range d.channels {
		if ch.IsHD {
			out = append(out, ch)
		}
	}
	return out
}

// MatchStation resolves a spoken channel to a station id among HD channels.
// When both are given the number decides.
func (d *Directory) MatchStation(name, number string) (Channel, Score, error) {
	hd := d.HD()
	switch {
	case number != "":
		return Match(number, hd, func(c Channel) string { return c.Number })
	case name != "":
		return Match(name, hd, func(c Channel) string { return c.Name })
	default:
		return Channel{}, 0, ErrNoMatch
	}
}
