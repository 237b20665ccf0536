// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httprpc talks to the DVR through a JSON-over-HTTP gateway that
// owns the device's native framing and authentication.
package httprpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/dvrtalk/internal/log"
	"github.com/ManuGH/dvrtalk/internal/metrics"
	"github.com/ManuGH/dvrtalk/internal/rpc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 4 << 20
)

// Config describes the gateway endpoint.
type Config struct {
	BaseURL    string
	BodyID     string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Opener creates gateway sessions.
type Opener struct {
	base   string
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

// New validates cfg and returns an Opener.
func New(cfg Config) (*Opener, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("httprpc: invalid gateway url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Opener{
		base:   strings.TrimRight(u.String(), "/"),
		cfg:    cfg,
		http:   client,
		logger: log.WithComponent("httprpc"),
	}, nil
}

// Open starts a session. Gateway sessions are stateless on the wire; the
// session id only correlates requests in gateway logs.
func (o *Opener) Open(_ context.Context) (rpc.Session, error) {
	return &Session{opener: o, id: uuid.NewString()}, nil
}

// Session is a gateway-backed rpc.Session. It is not safe for concurrent use.
type Session struct {
	opener  *Opener
	id      string
	closed  bool
	pending *envelope
}

type envelope struct {
	Header rpc.Header `json:"header"`
	Body   rpc.Body   `json:"body"`
}

// BodyID returns the configured device id.
func (s *Session) BodyID() string { return s.opener.cfg.BodyID }

// SendRequest posts reqType with payload to the gateway. The response is held
// until GetResponse.
func (s *Session) SendRequest(ctx context.Context, reqType string, payload map[string]any) error {
	if s.closed {
		return rpc.ErrClosed
	}
	s.pending = nil

	env, err := s.do(ctx, reqType, payload)
	outcome := "success"
	if err != nil || (env != nil && rpc.CheckResponse(reqType, env.Header, env.Body) != nil) {
		outcome = "error"
	}
	metrics.IncRPCRequest(reqType, outcome)
	if err != nil {
		return err
	}
	s.pending = env
	return nil
}

// GetResponse returns the response to the last request.
func (s *Session) GetResponse(_ context.Context) (rpc.Header, rpc.Body, error) {
	if s.closed {
		return nil, nil, rpc.ErrClosed
	}
	if s.pending == nil {
		return nil, nil, &rpc.Error{Sentinel: rpc.ErrBadResponse, Op: "getResponse", Text: "no pending request"}
	}
	env := s.pending
	s.pending = nil
	return env.Header, env.Body, nil
}

// Close releases the session.
func (s *Session) Close() error {
	s.closed = true
	s.pending = nil
	return nil
}

func (s *Session) do(ctx context.Context, reqType string, payload map[string]any) (*envelope, error) {
	op := reqType
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &rpc.Error{Sentinel: rpc.ErrBadResponse, Op: op, Err: err}
	}

	endpoint := s.opener.base + "/rpc/" + url.PathEscape(reqType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, &rpc.Error{Sentinel: rpc.ErrUnavailable, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Session-Id", s.id)
	if s.opener.cfg.BodyID != "" {
		req.Header.Set("X-Body-Id", s.opener.cfg.BodyID)
	}
	if s.opener.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.opener.cfg.Token)
	}
	if id := log.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}

	start := time.Now()
	res, err := s.opener.http.Do(req)
	if err != nil {
		return nil, classify(op, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, classify(op, err)
	}

	s.opener.logger.Debug().
		Str(log.FieldRequestType, reqType).
		Int("status", res.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("gateway request")

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		sentinel := rpc.ErrUnavailable
		if res.StatusCode < 500 {
			sentinel = rpc.ErrBadResponse
		}
		return nil, &rpc.Error{Sentinel: sentinel, Op: op, Status: res.StatusCode, Text: snippet(body)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &rpc.Error{Sentinel: rpc.ErrBadResponse, Op: op, Status: res.StatusCode, Err: err}
	}
	if env.Body == nil {
		return nil, &rpc.Error{Sentinel: rpc.ErrBadResponse, Op: op, Status: res.StatusCode, Text: "missing body"}
	}
	if env.Header == nil {
		env.Header = rpc.Header{}
	}
	return &env, nil
}

func classify(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &rpc.Error{Sentinel: rpc.ErrTimeout, Op: op, Err: err}
	case errors.Is(err, context.Canceled):
		return err
	default:
		return &rpc.Error{Sentinel: rpc.ErrUnavailable, Op: op, Err: err}
	}
}

func snippet(b []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(b))
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

var _ rpc.Opener = (*Opener)(nil)
