// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package rpctest provides a scripted in-memory DVR for tests.
package rpctest

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/ManuGH/dvrtalk/internal/rpc"
)

// Request is one recorded call.
type Request struct {
	Type    string
	Payload map[string]any
}

// Handler answers one request.
type Handler func(req Request) (rpc.Body, error)

// Server is an rpc.Opener whose sessions answer through a Handler and record
// every request.
type Server struct {
	bodyID  string
	handler Handler

	mu       sync.Mutex
	requests []Request
	opened   int
	closed   int
	openErr  error
	closeErr error
}

// NewServer returns a scripted server for bodyID.
func NewServer(bodyID string, handler Handler) *Server {
	return &Server{bodyID: bodyID, handler: handler}
}

// FailOpen makes subsequent Open calls return err.
func (s *Server) FailOpen(err error) {
	s.mu.Lock()
	s.openErr = err
	s.mu.Unlock()
}

// FailClose makes sessions report err from Close. The session still counts
// as closed.
func (s *Server) FailClose(err error) {
	s.mu.Lock()
	s.closeErr = err
	s.mu.Unlock()
}

// Open implements rpc.Opener.
func (s *Server) Open(_ context.Context) (rpc.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened++
	return &session{srv: s}, nil
}

// Requests returns a copy of the recorded requests in order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Opened returns the number of sessions handed out.
func (s *Server) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Closed returns the number of sessions closed.
func (s *Server) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type session struct {
	srv     *Server
	pending *Request
	closed  bool
}

func (s *session) SendRequest(_ context.Context, reqType string, payload map[string]any) error {
	if s.closed {
		return rpc.ErrClosed
	}
	req := Request{Type: reqType, Payload: maps.Clone(payload)}
	s.srv.mu.Lock()
	s.srv.requests = append(s.srv.requests, req)
	s.srv.mu.Unlock()
	s.pending = &req
	return nil
}

func (s *session) GetResponse(_ context.Context) (rpc.Header, rpc.Body, error) {
	if s.closed {
		return nil, nil, rpc.ErrClosed
	}
	if s.pending == nil {
		return nil, nil, errors.New("rpctest: no pending request")
	}
	req := *s.pending
	s.pending = nil
	body, err := s.srv.handler(req)
	if err != nil {
		return nil, nil, err
	}
	return rpc.Header{"IsFinal": true}, body, nil
}

func (s *session) BodyID() string { return s.srv.bodyID }

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.srv.mu.Lock()
	defer s.srv.mu.Unlock()
	s.srv.closed++
	return s.srv.closeErr
}

// Pages answers successive requests with arrays of the given sizes under
// target. Requests past the last size get an empty body.
func Pages(target string, sizes ...int) Handler {
	var mu sync.Mutex
	call, next := 0, 0
	return func(Request) (rpc.Body, error) {
		mu.Lock()
		defer mu.Unlock()
		body := rpc.Body{"type": target + "List"}
		if call < len(sizes) {
			items := make([]any, 0, sizes[call])
			for i := 0; i < sizes[call]; i++ {
				items = append(items, map[string]any{"n": float64(next)})
				next++
			}
			if len(items) > 0 {
				body[target] = items
			}
		}
		call++
		return body, nil
	}
}

// Route dispatches by request type. Unknown types get an error response.
func Route(routes map[string]Handler) Handler {
	return func(req Request) (rpc.Body, error) {
		h, ok := routes[req.Type]
		if !ok {
			return ErrorBody("unsupportedRequest", "no route for "+req.Type), nil
		}
		return h(req)
	}
}

// Static always answers with body.
func Static(body rpc.Body) Handler {
	return func(Request) (rpc.Body, error) { return maps.Clone(body), nil }
}

// ErrorBody builds an error response body.
func ErrorBody(code, text string) rpc.Body {
	return rpc.Body{"type": rpc.TypeError, "code": code, "text": text}
}

var _ rpc.Opener = (*Server)(nil)
