// Package apiclient is the HTTP adapter between the console and the
// invoicing backend: it attaches the session credential, encodes requests,
// and turns error responses into *Error values.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/schema"
)

// RequestIDHeader is forwarded to the backend for log correlation.
const RequestIDHeader = "X-Request-ID"

// CredentialSource supplies the bearer token for each request. Invalidate is
// called when the backend rejects the token.
type CredentialSource interface {
	Token() string
	Invalidate()
}

// Observer records backend call outcomes.
type Observer interface {
	ObserveBackendCall(method, resource string, status int, elapsed time.Duration)
}

// Client issues authenticated REST calls against the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	logger     *slog.Logger
	observer   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for failed calls.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithObserver sets a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithCredentialSource sets the credential used by the client.
func WithCredentialSource(creds CredentialSource) Option {
	return func(c *Client) { c.creds = creds }
}

// New constructs a Client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// WithCredentials returns a copy of c bound to creds. The console builds one
// per request from the caller's session.
func (c *Client) WithCredentials(creds CredentialSource) *Client {
	clone := *c
	clone.creds = creds
	return &clone
}

// Get decodes the JSON answer of a GET into out. query may be nil or a
// struct with schema tags.
func (c *Client) Get(ctx context.Context, route string, query any, out any) error {
	body, err := c.GetRaw(ctx, route, query)
	if err != nil {
		return err
	}
	return decodeInto(body, out)
}

// GetRaw returns the raw body of a GET.
func (c *Client) GetRaw(ctx context.Context, route string, query any) ([]byte, error) {
	target := route
	if query != nil && !reflect.ValueOf(query).IsZero() {
		form := url.Values{}
		if err := schema.NewEncoder().Encode(query, form); err != nil {
			return nil, fmt.Errorf("encode query: %w", err)
		}
		if encoded := form.Encode(); encoded != "" {
			target += "?" + encoded
		}
	}
	body, _, err := c.do(ctx, http.MethodGet, target, nil)
	return body, err
}

// Post sends body as JSON and decodes the answer into out (nil to discard).
func (c *Client) Post(ctx context.Context, route string, body any, out any) error {
	resp, _, err := c.do(ctx, http.MethodPost, route, body)
	if err != nil {
		return err
	}
	return decodeInto(resp, out)
}

// Put sends body as JSON and decodes the answer into out.
func (c *Client) Put(ctx context.Context, route string, body any, out any) error {
	resp, _, err := c.do(ctx, http.MethodPut, route, body)
	if err != nil {
		return err
	}
	return decodeInto(resp, out)
}

// Delete issues a DELETE and discards the body.
func (c *Client) Delete(ctx context.Context, route string) error {
	_, _, err := c.do(ctx, http.MethodDelete, route, nil)
	return err
}

// Document is a binary download.
type Document struct {
	ContentType string
	Filename    string
	Body        []byte
}

// Download fetches a binary resource such as an invoice PDF.
func (c *Client) Download(ctx context.Context, route string) (*Document, error) {
	body, header, err := c.do(ctx, http.MethodGet, route, nil)
	if err != nil {
		return nil, err
	}
	doc := &Document{ContentType: header.Get("Content-Type"), Body: body}
	if cd := header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			doc.Filename = params["filename"]
		}
	}
	return doc, nil
}

// List fetches a collection and normalises it into a Page.
func List[T any](ctx context.Context, c *Client, route string, query any) (Page[T], error) {
	body, err := c.GetRaw(ctx, route, query)
	if err != nil {
		return Page[T]{}, err
	}
	return DecodePage[T](body)
}

func (c *Client) do(ctx context.Context, method, route string, payload any) ([]byte, http.Header, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, route, 0, start)
		c.logger.Warn("backend call failed", slog.String("method", method), slog.String("route", route), slog.Any("error", err))
		return nil, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.observe(method, route, resp.StatusCode, start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := decodeError(resp.StatusCode, body)
		if resp.StatusCode == http.StatusUnauthorized && c.creds != nil {
			c.creds.Invalidate()
		}
		c.logger.Debug("backend rejected call",
			slog.String("method", method),
			slog.String("route", route),
			slog.Int("status", resp.StatusCode),
			slog.String("message", apiErr.Message))
		return nil, nil, apiErr
	}
	return body, resp.Header, nil
}

func (c *Client) observe(method, route string, status int, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveBackendCall(method, resourceOf(route), status, time.Since(start))
}

// resourceOf keeps metric labels bounded: "/invoices/42/send" -> "invoices".
func resourceOf(route string) string {
	route = strings.TrimPrefix(route, "/")
	if i := strings.IndexAny(route, "/?"); i >= 0 {
		route = route[:i]
	}
	if route == "" {
		return "root"
	}
	return route
}

func decodeInto(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
