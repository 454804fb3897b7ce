package feed

import (
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

	"lodging/internal/adapters/observability"
	"lodging/internal/domain"
)

const maxAttempts = 4

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("feed base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API (current endpoints first, legacy listing paths as fallback) ----

// ListLodgingRefs accepts either ["ref", ...] or [{"ref"|"id": ...}, ...].
func (c *Client) ListLodgingRefs(ctx context.Context) ([]string, error) {
	var raw []any
	if err := c.getFirst(ctx, "index", []string{
		c.base + "/lodgings",
		c.base + "/listings",
	}, &raw); err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(raw))
	for _, it := range raw {
		switch v := it.(type) {
		case string:
			refs = append(refs, v)
		case float64:
			refs = append(refs, strconv.FormatFloat(v, 'f', -1, 64))
		case map[string]any:
			for _, k := range []string{"ref", "id"} {
				if s, ok := v[k].(string); ok && s != "" {
					refs = append(refs, s)
					break
				}
				if f, ok := v[k].(float64); ok {
					refs = append(refs, strconv.FormatFloat(f, 'f', -1, 64))
					break
				}
			}
		}
	}
	return refs, nil
}

func (c *Client) GetLodging(ctx context.Context, ref string) (map[string]any, error) {
	ref = url.PathEscape(ref)
	var out map[string]any
	return out, c.getFirst(ctx, "lodging", []string{
		fmt.Sprintf("%s/lodgings/%s", c.base, ref),
		fmt.Sprintf("%s/listings/%s", c.base, ref),
	}, &out)
}

func (c *Client) GetReviews(ctx context.Context, ref string, count int) ([]map[string]any, error) {
	ref = url.PathEscape(ref)
	var out []map[string]any
	return out, c.getFirst(ctx, "reviews", []string{
		fmt.Sprintf("%s/lodgings/%s/reviews?limit=%d", c.base, ref, count),
		fmt.Sprintf("%s/listings/%s/reviews?limit=%d", c.base, ref, count),
	}, &out)
}

// ---- Internals ----

var (
	ErrNotFound     = fmt.Errorf("feed: %w", domain.ErrNotFound)
	ErrUnauthorized = fmt.Errorf("feed: unauthorized: %w", domain.ErrForbidden)
	ErrForbidden    = fmt.Errorf("feed: %w", domain.ErrForbidden)
)

func (c *Client) getFirst(ctx context.Context, endpoint string, urls []string, out any) error {
	var last error
	for _, u := range urls {
		if err := c.get(ctx, endpoint, u, out); err != nil {
			if errors.Is(err, ErrNotFound) {
				last = err
				continue // try next pattern
			}
			return err // non-404: stop early
		}
		return nil
	}
	if last != nil {
		return last
	}
	return errors.New("no candidate URL succeeded")
}

// get performs a rate limited GET and decodes the JSON answer into out.
// 429 and transient 5xx answers are retried, honoring Retry-After.
func (c *Client) get(ctx context.Context, endpoint, u string, out any) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if err := c.rl.Wait(ctx); err != nil {
			return err
		}
		wait, err := c.attempt(ctx, endpoint, u, out)
		if err == nil {
			return nil
		}
		if wait < 0 {
			return err
		}
		lastErr = err
		if wait == 0 {
			wait = backoff(i)
		}
		if i == maxAttempts-1 || !sleepCtx(ctx, wait) {
			break
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return lastErr
}

// attempt runs one request. A negative wait marks err as final; otherwise
// the caller may retry after wait (0 means use the backoff schedule).
func (c *Client) attempt(ctx context.Context, endpoint, u string, out any) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return -1, err
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "lodging-importer/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("feed", endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		return 0, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("feed", endpoint, resp.StatusCode, time.Since(start))

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
		return -1, json.NewDecoder(resp.Body).Decode(out)
	case code == http.StatusNoContent:
		return -1, nil
	case code == http.StatusNotFound:
		return -1, ErrNotFound
	case code == http.StatusUnauthorized:
		return -1, ErrUnauthorized
	case code == http.StatusForbidden:
		return -1, ErrForbidden
	case code == http.StatusTooManyRequests || (code >= 500 && code != http.StatusNotImplemented):
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return retryAfter(resp), fmt.Errorf("remote %d", code)
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return -1, fmt.Errorf("bad status %d: %s", code, strings.TrimSpace(string(b)))
	}
}

// sleepCtx waits for d or returns false early if ctx is done.
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
