// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package proxy relays training-session traffic to the orchestrator backend.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
)

// DefaultTimeout bounds a single forwarded call.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps the upstream body read into memory.
const maxResponseBytes = 10 << 20

// forwardedHeaders are copied from the inbound request to the upstream call.
var forwardedHeaders = []string{"Content-Type", "Accept", "X-Request-Id"}

// userIDHeader carries the gateway-resolved caller to the orchestrator. It is
// never copied from the inbound request.
const userIDHeader = "X-PULSE-User-Id"

// ErrResponseTooLarge is wrapped when the upstream body exceeds the read cap.
var ErrResponseTooLarge = errors.New("upstream response too large")

// Request is one call to relay.
type Request struct {
	Method string
	Path   string // e.g. "/session/start"; joined to the base URL
	Query  string // raw query without "?"
	Body   []byte
	Header http.Header
	UserID string // resolved caller, sent as X-PULSE-User-Id when set
}

// Response is a successful upstream answer.
type Response struct {
	Status      int
	Body        []byte
	ContentType string
}

// Forwarder relays requests to a single base URL.
type Forwarder struct {
	baseURL     string
	functionKey string
	httpClient  *http.Client
	logger      *slog.Logger
}

// Options configures a Forwarder.
type Options struct {
	BaseURL     string // e.g. "http://orchestrator:7071/api"
	FunctionKey string // sent as X-Function-Key when set
	Timeout     time.Duration
	Client      *http.Client // optional; Timeout is applied per call
}

// New returns a Forwarder. BaseURL is required.
func New(opts Options, logger *slog.Logger) (*Forwarder, error) {
	if opts.BaseURL == "" {
		return nil, apierr.Configuration("proxy: base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	if client.Timeout == 0 {
		c := *client
		c.Timeout = opts.Timeout
		client = &c
	}
	return &Forwarder{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		functionKey: opts.FunctionKey,
		httpClient:  client,
		logger:      logger,
	}, nil
}

// Forward makes exactly one upstream call. A non-2xx answer is returned as
// *apierr.UpstreamError carrying the upstream status and body; a transport
// failure is an *apierr.UpstreamError with status 502.
func (f *Forwarder) Forward(ctx context.Context, req Request) (*Response, error) {
	url := f.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if req.Query != "" {
		url += "?" + req.Query
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}
	for _, h := range forwardedHeaders {
		if v := req.Header.Get(h); v != "" {
			httpReq.Header.Set(h, v)
		}
	}
	if req.UserID != "" {
		httpReq.Header.Set(userIDHeader, req.UserID)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if f.functionKey != "" {
		httpReq.Header.Set("X-Function-Key", f.functionKey)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		f.logger.Warn("upstream request failed", "method", req.Method, "path", req.Path, "error", err)
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &apierr.UpstreamError{Status: http.StatusBadGateway, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &apierr.UpstreamError{Status: http.StatusBadGateway, Err: fmt.Errorf("read upstream body: %w", err)}
	}
	if len(respBody) > maxResponseBytes {
		f.logger.Warn("upstream response exceeds limit", "method", req.Method, "path", req.Path, "limit", maxResponseBytes)
		return nil, &apierr.UpstreamError{
			Status: http.StatusBadGateway,
			Err:    fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, maxResponseBytes),
		}
	}
	f.logger.Debug("upstream call", "method", req.Method, "path", req.Path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apierr.UpstreamError{
			Status:      resp.StatusCode,
			Body:        respBody,
			ContentType: resp.Header.Get("Content-Type"),
		}
	}
	return &Response{
		Status:      resp.StatusCode,
		Body:        respBody,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
