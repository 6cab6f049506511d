// Package backend talks to the external schedule store over its JSON REST
// API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"

	appLog "edgemaint/internal/log"
	"edgemaint/internal/model"
)

// ErrNotFound is returned when the store has no record with the given ID.
var ErrNotFound = errors.New("backend: maintenance not found")

// StatusError is a non-2xx response from the store.
type StatusError struct {
	Method string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s: HTTP %d: %s", e.Method, e.Status, e.Body)
}

// retryable reports whether the request may be sent again. A POST that
// failed with anything but 429 may already have been committed, so only a
// rejected one is retried.
func (e *StatusError) retryable() bool {
	if e.Status == http.StatusTooManyRequests {
		return true
	}
	return e.Method != http.MethodPost && e.Status >= http.StatusInternalServerError
}

// Options configures a Client. Zero values get defaults.
type Options struct {
	URL        string
	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration
}

// Client is a schedule store client. Requests that fail with a network
// error, 429 or 5xx are retried with jittered backoff.
type Client struct {
	base       string
	http       *http.Client
	attempts   uint
	retryDelay time.Duration
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 250 * time.Millisecond
	}
	return &Client{
		base:       strings.TrimSuffix(opts.URL, "/"),
		http:       &http.Client{Timeout: opts.Timeout},
		attempts:   uint(opts.Attempts),
		retryDelay: opts.RetryDelay,
	}
}

// Create stores a new record and returns it with its assigned ID.
func (c *Client) Create(ctx context.Context, m model.Maintenance) (model.Maintenance, error) {
	m.ID = ""
	key, err := uuid.NewV7()
	if err != nil {
		return model.Maintenance{}, fmt.Errorf("backend: idempotency key: %w", err)
	}
	var out model.Maintenance
	err = c.do(ctx, http.MethodPost, "/maintenances", key.String(), m, &out)
	return out, err
}

// Update replaces the record m.ID.
func (c *Client) Update(ctx context.Context, m model.Maintenance) (model.Maintenance, error) {
	if m.ID == "" {
		return model.Maintenance{}, errors.New("backend: update without ID")
	}
	var out model.Maintenance
	err := c.do(ctx, http.MethodPut, "/maintenances/"+url.PathEscape(m.ID), "", m, &out)
	return out, err
}

func (c *Client) Get(ctx context.Context, id string) (model.Maintenance, error) {
	var out model.Maintenance
	err := c.do(ctx, http.MethodGet, "/maintenances/"+url.PathEscape(id), "", nil, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/maintenances/"+url.PathEscape(id), "", nil, nil)
}

// do sends one request with retries. Transport errors are retried for
// every method but POST; key, when set, goes out as Idempotency-Key on
// every attempt.
func (c *Client) do(ctx context.Context, method, path, key string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("backend: encoding request: %w", err)
		}
	}
	target := c.base + path

	err := retry.Do(
		func() error {
			return c.once(ctx, method, target, key, payload, out)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(10*c.retryDelay),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.retryable()
			}
			if errors.Is(err, ErrNotFound) {
				return false
			}
			return method != http.MethodPost
		}),
		retry.OnRetry(func(n uint, err error) {
			appLog.Debug("backend retry", "attempt", n+1, "method", method, "url", redactURL(target), "err", err)
		}),
	)
	if err != nil {
		appLog.Error("backend request failed", err, "method", method, "url", redactURL(target))
		return err
	}
	return nil
}

func (c *Client) once(ctx context.Context, method, target, key string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("backend: creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s: %w", method, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Method: method, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Unrecoverable(fmt.Errorf("backend: decoding response: %w", err))
	}
	return nil
}

// redactURL keeps only scheme and host for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "backend://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
