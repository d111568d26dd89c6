// Package api is the single choke point for authenticated HTTP round trips
// to the marketplace server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"marketplace-client/internal/logging"
	"marketplace-client/internal/observability"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 200 * time.Millisecond
)

// CredentialSource yields the bearer credential for each request.
type CredentialSource interface {
	Token() string
}

var (
	// ErrUnreachable wraps transport failures: refused connections, timeouts
	// and the like.
	ErrUnreachable = errors.New("server unreachable")
	ErrBadResponse = errors.New("unexpected server response")
)

// APIError is a non-2xx response. Its Error() is safe to show to a user.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP error! Status: %d", e.Status)
	}
	return fmt.Sprintf("HTTP error! Status: %d: %s", e.Status, e.Message)
}

// Client calls the marketplace server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	attempts   int
	delay      time.Duration
	log        logging.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry overrides the attempt budget and the fixed pause between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if delay >= 0 {
			c.delay = delay
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient constructs a client for the server at baseURL.
func NewClient(baseURL string, creds CredentialSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		creds:      creds,
		attempts:   DefaultAttempts,
		delay:      DefaultDelay,
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchWithAuth sends method path with the bearer credential and JSON
// headers, decoding a 2xx body into out when out is non-nil.
//
// The whole request is retried on any failure (transport error, non-2xx
// status, undecodable body) up to the attempt budget with a fixed pause.
// The last error is returned. Writes therefore have at-least-once semantics.
func (c *Client) FetchWithAuth(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = data
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.delay), uint64(c.attempts-1)),
		ctx,
	)

	attempt := 0
	operation := func() error {
		attempt++
		return c.do(ctx, method, path, payload, out, attempt)
	}
	notify := func(err error, wait time.Duration) {
		observability.IncHTTPRetry(method)
		c.log.Warn(ctx, "request failed, retrying", "method", method, "path", path, "attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		c.log.Error(ctx, "request failed", "method", method, "path", path, "attempts", attempt, "error", err)
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any, attempt int) (err error) {
	ctx, span := otel.Tracer("marketplace-client/api").Start(ctx, "api.fetch")
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.Int("attempt", attempt),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.ObserveHTTPAttempt(method, "transport_error")
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.ObserveHTTPAttempt(method, strconv.Itoa(resp.StatusCode))
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	observability.ObserveHTTPAttempt(method, "ok")

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: decode: %w", ErrBadResponse, err)
	}
	return nil
}

func (c *Client) token() string {
	if c.creds == nil {
		return ""
	}
	return c.creds.Token()
}

func errorMessage(body io.Reader) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	_ = json.NewDecoder(io.LimitReader(body, 64<<10)).Decode(&errResp)
	for _, m := range []string{errResp.Error, errResp.Message, errResp.Msg} {
		if m = strings.TrimSpace(m); m != "" {
			return m
		}
	}
	return ""
}
