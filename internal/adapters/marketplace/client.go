// Package marketplace talks to the upstream marketplace services (users,
// properties, bookings, vendors). Every call goes through the auth.Session
// carried on the context so a 401 is handled the same way everywhere.
package marketplace

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"staybook/internal/adapters/observability"
	"staybook/internal/auth"
	"staybook/internal/domain"
)

const maxAttempts = 4

type Client struct {
	service string
	base    string
	hc      *http.Client
	rl      *rate.Limiter
}

func New(service, base string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("%s: base URL is required", service)
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		service: service,
		base:    strings.TrimRight(base, "/"),
		hc:      &http.Client{Timeout: 20 * time.Second},
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// op describes one upstream request. The body is encoded once so a replay
// after a token refresh sends identical bytes.
type op struct {
	method string
	path   string
	route  string // metrics label, e.g. "GET /properties/{id}"
	query  url.Values
	in     any
	raw    []byte
	ctype  string
	kind   auth.Kind
	out    any
}

func (o *op) encode() error {
	if o.in == nil || o.raw != nil {
		return nil
	}
	b, err := json.Marshal(o.in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", o.route, err)
	}
	o.raw, o.ctype = b, "application/json"
	return nil
}

// do sends o with the session found on ctx, or anonymously without one.
func (c *Client) do(ctx context.Context, o op) error {
	if err := o.encode(); err != nil {
		return err
	}
	call := func(ctx context.Context, access string) error {
		return c.send(ctx, o, access)
	}
	if s, ok := auth.FromContext(ctx); ok {
		return s.Do(ctx, o.kind, call)
	}
	return call(ctx, "")
}

// anonymous sends o without consulting any session.
func (c *Client) anonymous(ctx context.Context, o op) error {
	if err := o.encode(); err != nil {
		return err
	}
	return c.send(ctx, o, "")
}

// send performs the request with client-side rate limiting, retries, and
// JSON decode into o.out. Idempotent methods retry on 429 and transient 5xx;
// POST and PATCH retry only on 429 since the server never processed them.
func (c *Client) send(ctx context.Context, o op, access string) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	u := c.base + o.path
	if len(o.query) > 0 {
		u += "?" + o.query.Encode()
	}
	idempotent := o.method == http.MethodGet || o.method == http.MethodPut || o.method == http.MethodDelete

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		var body io.Reader
		if o.raw != nil {
			body = bytes.NewReader(o.raw)
		}
		req, err := http.NewRequestWithContext(ctx, o.method, u, body)
		if err != nil {
			return err
		}
		if o.ctype != "" {
			req.Header.Set("Content-Type", o.ctype)
		}
		if access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "staybook/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(c.service, o.route, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if idempotent && i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(c.service, o.route, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			defer resp.Body.Close()
			if o.out == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(o.out); err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("decode %s: %w", o.route, err)
			}
			return nil

		case http.StatusNoContent:
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return domain.ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return domain.ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = &domain.APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
			retryable := idempotent || resp.StatusCode == http.StatusTooManyRequests
			if !retryable {
				return lastErr
			}
			if wait == 0 {
				wait = backoff(i)
			}
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return &domain.APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		}
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
