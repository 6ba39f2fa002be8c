package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/kamilsk/breaker"
	"github.com/kamilsk/retry"
	"github.com/kamilsk/retry/strategy"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/krexdev/krexcheck/internal/httpx"
)

// APIError is a typed HTTP failure from the remote service.
type APIError struct {
	Status     int
	RetryAfter float64 // seconds, from a 429 body/header; 0 when absent
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d", e.Status)
}

// ClientConfig tunes the retry engine.
type ClientConfig struct {
	BaseURL   string
	UserAgent string

	RetryLimit        int           // attempts per call, primary endpoint
	RetryAfterDefault time.Duration // 429 wait when the server gives no hint
	BackoffBase       time.Duration
	JitterMax         time.Duration
	MinRequestGap     time.Duration // client-wide pacing floor
}

// Client performs the per-endpoint calls. Safe for concurrent use.
type Client struct {
	http httpx.Doer
	cfg  ClientConfig
	log  *logrus.Logger

	// OnRateLimit runs once per 429 encountered, before the wait.
	OnRateLimit func()

	// sleep is swappable in tests.
	sleep func(context.Context, time.Duration) error

	mu          sync.Mutex
	lastRequest time.Time
}

func NewClient(doer httpx.Doer, cfg ClientConfig, log *logrus.Logger) *Client {
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.RetryAfterDefault <= 0 {
		cfg.RetryAfterDefault = 5 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Client{
		http:  doer,
		cfg:   cfg,
		log:   log,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pace enforces the client-wide minimum gap between requests. Best-effort
// throttling only; the 429 path still handles real limits.
func (c *Client) pace(ctx context.Context) error {
	if c.cfg.MinRequestGap <= 0 {
		return ctx.Err()
	}
	c.mu.Lock()
	now := time.Now()
	next := c.lastRequest.Add(c.cfg.MinRequestGap)
	if next.Before(now) {
		next = now
	}
	c.lastRequest = next
	c.mu.Unlock()
	return c.sleep(ctx, next.Sub(now))
}

// get performs a single authorized request. Non-2xx statuses come back as
// *APIError.
func (c *Client) get(ctx context.Context, path, token string) ([]byte, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	req, err := httpx.NewRequest(ctx, http.MethodGet, c.cfg.BaseURL+path, nil, c.cfg.UserAgent)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	if resp.StatusCode == http.StatusTooManyRequests {
		var rl rateLimitResponse
		if json.Unmarshal(body, &rl) == nil && rl.RetryAfter > 0 {
			apiErr.RetryAfter = rl.RetryAfter
		}
	}
	return nil, apiErr
}

// getWithRetry drives the retry budget for the primary endpoint: 401/403 are
// terminal, 429 waits the server-provided delay, 5xx and transport errors
// back off exponentially with jitter. Exhaustion returns the last error.
func (c *Client) getWithRetry(ctx context.Context, path, token string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.cfg.RetryLimit; attempt++ {
		body, err := c.get(ctx, path, token)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
				return nil, err // permanent, no retry

			case apiErr.Status == http.StatusTooManyRequests:
				if c.OnRateLimit != nil {
					c.OnRateLimit()
				}
				wait := c.cfg.RetryAfterDefault
				if apiErr.RetryAfter > 0 {
					wait = time.Duration(apiErr.RetryAfter * float64(time.Second))
				}
				c.log.WithField("wait", wait).Debug("rate limited, backing off")
				if err := c.sleep(ctx, wait+c.jitter()); err != nil {
					return nil, err
				}
				continue

			case apiErr.Status >= 500:
				// fall through to the backoff below
			default:
				return nil, err // unexpected 4xx, not worth retrying
			}
		}

		backoff := time.Duration(float64(c.cfg.BackoffBase)*math.Pow(2, float64(attempt))) + c.jitter()
		c.log.WithFields(logrus.Fields{"attempt": attempt + 1, "backoff": backoff}).
			Debug("transient failure, retrying")
		if err := c.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, errors.Wrap(lastErr, "retry budget exhausted")
}

func (c *Client) jitter() time.Duration {
	if c.cfg.JitterMax <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(c.cfg.JitterMax)))
}

// Identity is the primary call. Its failure is fatal to the item.
func (c *Client) Identity(ctx context.Context, token string) (*userResponse, error) {
	body, err := c.getWithRetry(ctx, "/users/@me", token)
	if err != nil {
		return nil, err
	}
	var u userResponse
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, errors.Wrap(err, "decode identity")
	}
	return &u, nil
}

// getSecondary wraps a lookup whose failure degrades to a default. It uses a
// small bounded retry around the single-shot request.
func (c *Client) getSecondary(ctx context.Context, path, token string) ([]byte, error) {
	var body []byte
	action := func(uint) error {
		var err error
		body, err = c.get(ctx, path, token)
		return err
	}
	if err := retry.Retry(breaker.BreakByTimeout(15*time.Second), action, strategy.Limit(2)); err != nil {
		return nil, err
	}
	return body, nil
}

// Profile returns the extended profile, or an error the caller maps to the
// documented default (empty badge list, zero extended flags).
func (c *Client) Profile(ctx context.Context, token, userID string) (*profileResponse, error) {
	body, err := c.getSecondary(ctx, "/users/"+userID+"/profile", token)
	if err != nil {
		return nil, err
	}
	var p profileResponse
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errors.Wrap(err, "decode profile")
	}
	return &p, nil
}

// BoostSlots returns the boost-slot records; default on failure is an empty
// slice.
func (c *Client) BoostSlots(ctx context.Context, token string) ([]boostSlot, error) {
	body, err := c.getSecondary(ctx, "/users/@me/guilds/premium/subscription-slots", token)
	if err != nil {
		return nil, err
	}
	var slots []boostSlot
	if err := json.Unmarshal(body, &slots); err != nil {
		return nil, errors.Wrap(err, "decode boost slots")
	}
	return slots, nil
}

// Subscriptions returns the billing subscriptions; default on failure is an
// empty slice.
func (c *Client) Subscriptions(ctx context.Context, token string) ([]subscription, error) {
	body, err := c.getSecondary(ctx, "/users/@me/billing/subscriptions", token)
	if err != nil {
		return nil, err
	}
	var subs []subscription
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, errors.Wrap(err, "decode subscriptions")
	}
	return subs, nil
}

// PaymentSources returns the payment-source records; default on failure is
// an empty slice.
func (c *Client) PaymentSources(ctx context.Context, token string) ([]paymentSource, error) {
	body, err := c.getSecondary(ctx, "/users/@me/billing/payment-sources", token)
	if err != nil {
		return nil, err
	}
	var sources []paymentSource
	if err := json.Unmarshal(body, &sources); err != nil {
		return nil, errors.Wrap(err, "decode payment sources")
	}
	return sources, nil
}

// Redact shortens a token for diagnostics. Full tokens never reach the log.
func Redact(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:8] + "********"
}
