// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file implements the client for the detection backend's REST API.
//
// Every request carries the bearer token from the injected TokenSource and is
// paced by a QuotaAwareTransport. Failures are mapped onto the model error
// kinds:
//
//   - 404                        -> model.ErrNotFound
//   - 400, 422                   -> model.ErrValidation
//   - any other non-2xx status,
//     transport errors, timeouts -> model.ErrNetworkFailure
//
// Idempotent GET requests are retried on transport errors, 429 and 5xx.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
)

// Backend API routes. The filename placeholder is path-escaped on use.
const (
	RouteLogin    = "/login"
	RouteHealth   = "/health"
	RouteVideos   = "/videos"
	RouteVideo    = "/videos/{filename}"
	RouteLogs     = "/videos/{filename}/logs"
	RouteMedia    = "/video/{filename}"
	RouteMediaURL = "/video/{filename}/url"
)

// RequestObserver is told about every completed backend round trip. Status is
// 0 when no response was received.
type RequestObserver func(method, route string, status int, elapsed time.Duration)

// StatusError describes a non-2xx backend response.
type StatusError struct {
	Method     string
	Route      string
	StatusCode int
	Message    string
	kind       error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: backend returned %d", e.Method, e.Route, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: backend returned %d: %s", e.Method, e.Route, e.StatusCode, e.Message)
}

// Unwrap exposes the model error kind for errors.Is.
func (e *StatusError) Unwrap() error {
	return e.kind
}

// Retryable reports whether repeating the request may succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func newStatusError(method, route string, code int, body []byte) *StatusError {
	kind := model.ErrNetworkFailure
	switch code {
	case http.StatusNotFound:
		kind = model.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = model.ErrValidation
	}
	return &StatusError{Method: method, Route: route, StatusCode: code, Message: errorMessage(body), kind: kind}
}

// errorMessage pulls the human-readable text out of {"message": ...} or
// {"error": ...} bodies.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}

// ClientOption customises a BackendClient.
type ClientOption func(*BackendClient)

// WithHTTPClient replaces the HTTP client. The caller owns its transport, so
// no rate limiting is added.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *BackendClient) {
		c.httpClient = hc
	}
}

// WithRequestObserver installs a latency/status observer.
func WithRequestObserver(o RequestObserver) ClientOption {
	return func(c *BackendClient) {
		c.observer = o
	}
}

// BackendClient talks to the detection backend.
type BackendClient struct {
	baseURL      string
	httpClient   *http.Client
	mediaClient  *http.Client
	tokens       TokenSource
	maxRetries   int
	retryBackoff time.Duration
	urlExpiry    int
	observer     RequestObserver
}

// NewBackendClient builds a client from the [backend] configuration section.
//
// Inputs:
//   - cfg: Base URL, timeout, pacing and retry settings.
//   - tokens: Source of the bearer token; nil sends unauthenticated requests.
//   - opts: Optional overrides.
//
// Outputs:
//   - *BackendClient: The client.
//   - error: When the base URL is not an absolute http(s) URL.
func NewBackendClient(cfg Backend, tokens TokenSource, opts ...ClientOption) (*BackendClient, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", cfg.BaseURL)
	}
	if tokens == nil {
		tokens = NewTokenStore("")
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	transport := NewQuotaAwareTransport(nil, cfg.RequestsPerSecond, cfg.Burst)
	c := &BackendClient{
		baseURL:      strings.TrimSuffix(u.String(), "/"),
		httpClient:   &http.Client{Timeout: cfg.Timeout(), Transport: transport},
		tokens:       tokens,
		maxRetries:   retries,
		retryBackoff: cfg.RetryBackoff(),
		urlExpiry:    cfg.SignedURLExpirySeconds,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.mediaClient == nil {
		// Media streams are bounded by the caller's context, not a fixed timeout.
		c.mediaClient = &http.Client{Transport: c.httpClient.Transport}
	}
	return c, nil
}

// BaseURL returns the normalised backend location.
func (c *BackendClient) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a bearer token. The caller decides where to
// keep it, normally in the TokenStore that feeds this client.
func (c *BackendClient) Login(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", fmt.Errorf("%w: username and password are required", model.ErrValidation)
	}
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, RouteLogin, RouteLogin, body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: login response carried no token", model.ErrNetworkFailure)
	}
	return out.Token, nil
}

// Health checks that the backend answers.
func (c *BackendClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, RouteHealth, RouteHealth, nil, nil)
}

// ListVideos returns the user's video records.
func (c *BackendClient) ListVideos(ctx context.Context) ([]model.VideoRecord, error) {
	var out []model.VideoRecord
	if err := c.do(ctx, http.MethodGet, RouteVideos, RouteVideos, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = make([]model.VideoRecord, 0)
	}
	return out, nil
}

// GetLogs fetches and decodes the detection log of filename.
func (c *BackendClient) GetLogs(ctx context.Context, filename string) (*model.DetectionLog, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, RouteLogs, expand(RouteLogs, filename), nil, &raw); err != nil {
		return nil, err
	}
	log, err := model.ParseDetectionLog(raw)
	if err != nil {
		return nil, fmt.Errorf("logs of %s: %w", filename, err)
	}
	return log, nil
}

// RenameVideo asks the backend to rename filename's display name. It returns
// the storage key the backend now uses, which is empty when the response did
// not carry one.
func (c *BackendClient) RenameVideo(ctx context.Context, filename, newName string) (string, error) {
	var out struct {
		NewFilename string `json:"new_filename"`
	}
	body := map[string]string{"new_name": newName}
	if err := c.do(ctx, http.MethodPut, RouteVideo, expand(RouteVideo, filename), body, &out); err != nil {
		return "", err
	}
	return out.NewFilename, nil
}

// DeleteVideo removes filename and its log from the backend.
func (c *BackendClient) DeleteVideo(ctx context.Context, filename string) error {
	return c.do(ctx, http.MethodDelete, RouteVideo, expand(RouteVideo, filename), nil, nil)
}

// MediaURL returns the signed, temporary URL of filename's media. When a
// signed URL lifetime is configured it is requested explicitly; otherwise the
// backend's default applies.
func (c *BackendClient) MediaURL(ctx context.Context, filename string) (string, error) {
	if c.urlExpiry > 0 {
		signedURL, _, err := c.MediaURLWithExpiry(ctx, filename, c.urlExpiry)
		return signedURL, err
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, RouteMedia, expand(RouteMedia, filename), nil, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: no media url for %s", model.ErrNotFound, filename)
	}
	return out.URL, nil
}

// MediaURLWithExpiry requests a signed URL with an explicit lifetime. The
// backend echoes the lifetime it granted.
func (c *BackendClient) MediaURLWithExpiry(ctx context.Context, filename string, expires int) (string, int, error) {
	var out struct {
		URL       string `json:"url"`
		ExpiresIn int    `json:"expires_in"`
	}
	path := expand(RouteMediaURL, filename) + "?expires=" + strconv.Itoa(expires)
	if err := c.do(ctx, http.MethodGet, RouteMediaURL, path, nil, &out); err != nil {
		return "", 0, err
	}
	if out.URL == "" {
		return "", 0, fmt.Errorf("%w: no media url for %s", model.ErrNotFound, filename)
	}
	return out.URL, out.ExpiresIn, nil
}

// OpenMedia starts downloading a signed media URL. Signed URLs carry their
// own authorisation, so no bearer token is attached. The caller must close the
// returned body.
//
// Outputs:
//   - io.ReadCloser: The response body.
//   - string: The Content-Type reported by the media host.
//   - error: Mapped like any other backend failure.
func (c *BackendClient) OpenMedia(ctx context.Context, signedURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid media url: %v", model.ErrValidation, err)
	}
	start := time.Now()
	resp, err := c.mediaClient.Do(req)
	if err != nil {
		c.observe(http.MethodGet, "media", 0, start)
		return nil, "", fmt.Errorf("%w: fetch media: %w", model.ErrNetworkFailure, err)
	}
	c.observe(http.MethodGet, "media", resp.StatusCode, start)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, "", newStatusError(http.MethodGet, "media", resp.StatusCode, body)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// do runs a JSON request, retrying idempotent ones.
func (c *BackendClient) do(ctx context.Context, method, route, path string, body, out any) error {
	attempts := 1
	if method == http.MethodGet {
		attempts += c.maxRetries
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := c.retryBackoff * time.Duration(attempt)
			slog.DebugContext(ctx, "retrying backend request", "method", method, "route", route, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %s %s: %w", model.ErrNetworkFailure, method, route, ctx.Err())
			case <-time.After(wait):
			}
		}
		err = c.doOnce(ctx, method, route, path, body, out)
		if err == nil || !retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return errors.Is(err, model.ErrNetworkFailure)
}

func (c *BackendClient) doOnce(ctx context.Context, method, route, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s request: %w", method, route, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, route, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Get(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, route, 0, start)
		return fmt.Errorf("%w: %s %s: %w", model.ErrNetworkFailure, method, route, err)
	}
	defer resp.Body.Close()
	c.observe(method, route, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return newStatusError(method, route, resp.StatusCode, payload)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s response: %v", model.ErrNetworkFailure, method, route, err)
	}
	return nil
}

func (c *BackendClient) observe(method, route string, status int, start time.Time) {
	if c.observer != nil {
		c.observer(method, route, status, time.Since(start))
	}
}

func expand(route, filename string) string {
	return strings.Replace(route, "{filename}", url.PathEscape(filename), 1)
}
