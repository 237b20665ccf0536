// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package rpc describes the remote procedure session used to query and
// control the DVR. Framing, encryption and authentication belong to the
// concrete session implementation.
package rpc

import (
	"context"
	"strings"
	"time"
)

// TimeLayout is the canonical timestamp format understood by the DVR.
const TimeLayout = "2006-01-02 15:04:05"

// Response type tags shared by every request.
const (
	TypeError   = "error"
	TypeSuccess = "success"
)

// Header is the response metadata section.
type Header map[string]any

// Body is the response payload section.
type Body map[string]any

// Type returns the response type tag, or "" when absent.
func (b Body) Type() string {
	t, _ := b["type"].(string)
	return t
}

// Session is one open connection to the DVR's remote procedure service.
// A session is owned by a single caller and must be closed on every path.
type Session interface {
	// SendRequest issues a request of reqType with payload.
	SendRequest(ctx context.Context, reqType string, payload map[string]any) error
	// GetResponse returns the response to the last request.
	GetResponse(ctx context.Context) (Header, Body, error)
	// BodyID identifies the controlled device every query is scoped to.
	BodyID() string
	Close() error
}

// Opener creates sessions.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Session, error)

// Open calls f(ctx).
func (f OpenerFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

// FormatTime renders t in the DVR's canonical UTC form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a canonical UTC timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}

// Call sends one request and returns its body, converting error responses
// into *Error.
func Call(ctx context.Context, sess Session, reqType string, payload map[string]any) (Body, error) {
	if err := sess.SendRequest(ctx, reqType, payload); err != nil {
		return nil, err
	}
	header, body, err := sess.GetResponse(ctx)
	if err != nil {
		return nil, err
	}
	if err := CheckResponse(reqType, header, body); err != nil {
		return nil, err
	}
	return body, nil
}

// CheckResponse returns an *Error when either response section reports the
// error type.
func CheckResponse(op string, header Header, body Body) error {
	if body == nil {
		return &Error{Sentinel: ErrBadResponse, Op: op, Text: "empty body"}
	}
	isErr := strings.EqualFold(body.Type(), TypeError)
	if t, ok := header["type"].(string); ok && strings.EqualFold(t, TypeError) {
		isErr = true
	}
	if !isErr {
		return nil
	}
	e := &Error{Sentinel: ErrRemote, Op: op, Type: TypeError}
	e.Code, _ = body["code"].(string)
	e.Text, _ = body["text"].(string)
	return e
}
