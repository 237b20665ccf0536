// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package message defines the command and response envelopes exchanged
// between the two relay peers.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Envelope keys shared by both peers.
const (
	KeyCmd        = "cmd"
	KeyStatus     = "status"
	KeyTotalCount = "total_count"
	KeyError      = "error"
	KeyPayload    = "payload"
	KeyStopKey    = "key"
)

// Response status values.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// CmdStop is the control sentinel a transport addresses to itself on disconnect.
const CmdStop = "STOP"

// Message is a command or response envelope. Every envelope carries a "cmd"
// tag; the remaining keys depend on the command.
type Message map[string]any

// New builds a command envelope with the given command tag and fields.
func New(cmd string, fields map[string]any) Message {
	m := make(Message, len(fields)+1)
	for k, v := range fields {
		m[k] = v
	}
	m[KeyCmd] = cmd
	return m
}

// Decode parses a JSON object into a Message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("decode message: not a JSON object")
	}
	return m, nil
}

// Encode serialises the message as a JSON object.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// Cmd returns the command tag and whether it was present as a string.
func (m Message) Cmd() (string, bool) {
	return m.String(KeyCmd)
}

// Status returns the response status, empty if absent.
func (m Message) Status() string {
	s, _ := m.String(KeyStatus)
	return s
}

// String returns the string value stored under key.
func (m Message) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// OptionalString returns the string under key, treating absent, null and
// non-string values as empty.
func (m Message) OptionalString(key string) string {
	s, _ := m.String(key)
	return s
}

// Strings returns a string list stored under key. JSON decoding produces
// []any, so both shapes are accepted; non-string elements are formatted.
func (m Message) Strings(key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

// Int returns an integer stored under key. JSON numbers decode as float64.
func (m Message) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// IsStop reports whether the message is the STOP control sentinel carrying key.
func (m Message) IsStop(key string) bool {
	cmd, _ := m.Cmd()
	if cmd != CmdStop {
		return false
	}
	k, ok := m.String(KeyStopKey)
	return ok && k == key
}

// Response builds a response envelope echoing cmd.
func Response(cmd, status string) Message {
	return Message{KeyCmd: cmd, KeyStatus: status}
}

// Success builds a SUCCESS envelope for a list payload stored under listKey.
func Success[T any](cmd, listKey string, items []T) Message {
	if items == nil {
		items = []T{}
	}
	return Message{
		KeyCmd:        cmd,
		KeyStatus:     StatusSuccess,
		listKey:       items,
		KeyTotalCount: len(items),
	}
}

// Failure builds an ERROR envelope for cmd carrying err's text.
func Failure(cmd string, err error) Message {
	m := Response(cmd, StatusError)
	if err != nil {
		m[KeyError] = err.Error()
	}
	return m
}

// NormalizeCmd returns the lower-cased handler key for a command tag.
func NormalizeCmd(cmd string) string {
	return strings.ToLower(strings.TrimSpace(cmd))
}
