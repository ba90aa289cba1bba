package backend

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hotel_bookings/internal/adapters/observability"
	"hotel_bookings/internal/domain"
)

type Config struct {
	BaseURL     string
	Tokens      domain.TokenSource
	RPS         int
	Timeout     time.Duration
	ReadRetries int // extra attempts for GET/HEAD on 429/5xx/transport errors
	HTTPClient  *http.Client
}

// Client talks to the booking REST backend. It is shared by every resource.
type Client struct {
	base    string
	hc      *http.Client
	tokens  domain.TokenSource
	rl      *rate.Limiter
	retries int
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ReadRetries < 0 {
		cfg.ReadRetries = 0
	}
	if cfg.Tokens == nil {
		cfg.Tokens = domain.StaticToken("")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		hc:      hc,
		tokens:  cfg.Tokens,
		rl:      rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS),
		retries: cfg.ReadRetries,
	}, nil
}

// Probe is the cheap reachability read used by the connectivity monitor.
func (c *Client) Probe(ctx context.Context) error {
	return c.do(ctx, call{resource: "bookings", op: "probe", method: http.MethodHead, path: "/bookings/"})
}

// StatusError is an unexpected HTTP status. It matches domain.ErrServer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend status %d", e.Code)
	}
	return fmt.Sprintf("backend status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return domain.ErrServer }

type call struct {
	resource string
	op       string
	method   string
	path     string // relative to base, with query
	body     any
	out      any
}

func (c *Client) idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// do performs one logical request with client-side rate limiting and JSON
// encoding. Reads are retried on 429, transient 5xx and transport errors,
// honoring Retry-After; writes are attempted once.
func (c *Client) do(ctx context.Context, cl call) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			// never sent, so it says nothing about the backend
			v := &domain.ValidationError{}
			v.Add("non_field_errors", "payload cannot be encoded: "+err.Error())
			return v
		}
		payload = b
	}

	attempts := 1
	if c.idempotent(cl.method) {
		attempts += c.retries
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		last := i == attempts-1
		req, err := http.NewRequestWithContext(ctx, cl.method, c.base+cl.path, bodyReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "hotel-bookings/1.0")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Token "+tok)
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(cl.resource, cl.op, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("%s %s: %w: %w", cl.method, cl.path, domain.ErrServer, err)
			if !last && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(cl.resource, cl.op, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			defer resp.Body.Close()
			if cl.out == nil || cl.method == http.MethodHead {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
				return fmt.Errorf("decode %s: %w: %w", cl.resource, domain.ErrServer, err)
			}
			return nil

		case http.StatusNoContent:
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return fmt.Errorf("%s %s: %w", cl.method, cl.path, domain.ErrNotFound)

		case http.StatusBadRequest:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
			resp.Body.Close()
			return validationFromBody(b)

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &StatusError{Code: resp.StatusCode}
			if !last && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		}
	}
	return lastErr
}

func bodyReader(b []byte) io.Reader {
	if b == nil {
		return nil
	}
	return bytes.NewReader(b)
}

// validationFromBody turns a DRF-style {"field": ["msg", ...]} body into a
// ValidationError. Non-field shapes land under "non_field_errors".
func validationFromBody(b []byte) error {
	var v domain.ValidationError
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = "bad request"
		}
		v.Add("non_field_errors", msg)
		return &v
	}
	for k, raw := range fields {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			for _, m := range list {
				v.Add(k, m)
			}
			continue
		}
		var one string
		if err := json.Unmarshal(raw, &one); err == nil {
			v.Add(k, one)
			continue
		}
		v.Add(k, string(raw))
	}
	if len(v.Fields) == 0 {
		v.Add("non_field_errors", "bad request")
	}
	return &v
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

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
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
