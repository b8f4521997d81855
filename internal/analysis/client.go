// Package analysis is the HTTP client for the BreathPlat analysis services.
// Each wizard step talks to one service (profiling, preprocessing, feature
// extraction, evaluation, classification, prediction); the explanation
// service is called after classification.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"breathplat/internal/config"
	"breathplat/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 512

// =============================================================================
// ERRORS
// =============================================================================

// ServiceError is a non-2xx response from an analysis service.
type ServiceError struct {
	Service string
	Status  int
	Body    string
}

func (e *ServiceError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s service returned status %d: %s", e.Service, e.Status, msg)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client calls the analysis services configured in config.ServicesConfig.
// Per-service timeouts are applied to every call on top of the caller's
// context.
type Client struct {
	services config.ServicesConfig
	http     *http.Client
	checks   singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the given service endpoints.
func NewClient(services config.ServicesConfig, opts ...Option) *Client {
	c := &Client{
		services: services,
		http:     &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL of a service.
func (c *Client) BaseURL(service string) string {
	return strings.TrimRight(c.services[service].BaseURL, "/")
}

// part is one field of a multipart request. A part with a FileName is sent
// as a file.
type part struct {
	Name     string
	FileName string
	Content  []byte
}

func (c *Client) postJSON(ctx context.Context, service, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", service, err)
	}
	raw, err := c.do(ctx, service, http.MethodPost, path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	return decode(service, raw, out)
}

func (c *Client) postMultipart(ctx context.Context, service, path string, parts []part) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		var (
			w   io.Writer
			err error
		)
		if p.FileName != "" {
			w, err = mw.CreateFormFile(p.Name, p.FileName)
		} else {
			w, err = mw.CreateFormField(p.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build %s request: %w", service, err)
		}
		if _, err := w.Write(p.Content); err != nil {
			return nil, fmt.Errorf("failed to build %s request: %w", service, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", service, err)
	}
	return c.do(ctx, service, http.MethodPost, path, mw.FormDataContentType(), &buf)
}

// do sends one request and returns the response body of a 2xx response.
func (c *Client) do(ctx context.Context, service, method, path, contentType string, body io.Reader) ([]byte, error) {
	svc, ok := c.services[service]
	if !ok || svc.BaseURL == "" {
		return nil, fmt.Errorf("%s service is not configured", service)
	}
	ctx, cancel := context.WithTimeout(ctx, svc.GetTimeout())
	defer cancel()

	url := c.BaseURL(service) + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", service, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	log := logging.Get(logging.CategoryServices).With(zap.String("service", service), zap.String("url", url))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return nil, fmt.Errorf("%s request failed: %w", service, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", service, err)
	}
	log.Debug("request done", zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceError{Service: service, Status: resp.StatusCode, Body: string(truncateBody(raw, maxErrorBody))}
	}
	return raw, nil
}

// truncateBody cuts raw to at most n bytes without splitting a UTF-8 sequence.
func truncateBody(raw []byte, n int) []byte {
	if len(raw) <= n {
		return raw
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut]
}

func decode(service string, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", service, err)
	}
	return nil
}
