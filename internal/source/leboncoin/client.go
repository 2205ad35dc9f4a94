package leboncoin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/ogaillard63/lbcwatch/internal/domain"
)

// ErrBlocked is returned when the anti-bot protection keeps answering 403
// after every retry has rotated through a fresh session.
var ErrBlocked = errors.New("blocked after retries exhausted")

// EventLog is the DB log sink shared with the web front-end.
type EventLog interface {
	Append(ctx context.Context, message, level string) error
}

// browserProfile is one browser identity the client can impersonate.
type browserProfile struct {
	name      string
	userAgent string
}

var browserProfiles = []browserProfile{
	{"chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"},
	{"edge", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0"},
	{"safari", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15"},
	{"firefox", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0"},
}

// ClientConfig holds the resilient client knobs.
type ClientConfig struct {
	SiteURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client performs marketplace requests while absorbing anti-bot blocking.
// It owns a cookie-carrying session under a randomly chosen browser identity
// and recreates it from scratch whenever a request is refused.
type Client struct {
	cfg     ClientConfig
	events  EventLog
	logger  *slog.Logger
	http    *http.Client
	profile browserProfile

	// sleep is swapped out in tests so retry backoff does not wall-clock.
	sleep func(ctx context.Context, d time.Duration)
}

// NewClient builds a client and establishes its first session.
func NewClient(ctx context.Context, cfg ClientConfig, events EventLog, logger *slog.Logger) *Client {
	c := &Client{
		cfg:    cfg,
		events: events,
		logger: logger.With("component", "lbc_client"),
		sleep:  wait,
	}
	c.initSession(ctx)
	return c
}

// initSession discards the current cookies, picks a fresh browser identity
// and issues a warm-up request to the site root to acquire baseline cookies.
func (c *Client) initSession(ctx context.Context) {
	jar, _ := cookiejar.New(nil)
	c.profile = browserProfiles[rand.N(len(browserProfiles))]
	c.http = &http.Client{
		Timeout: c.cfg.Timeout,
		Jar:     jar,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.SiteURL, nil)
	if err != nil {
		c.logger.Error("build warm-up request", "error", err)
		return
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logEvent(ctx, fmt.Sprintf("session warm-up failed: %v", err), domain.LevelError)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logEvent(ctx, fmt.Sprintf("session initialized (%s)", c.profile.name), domain.LevelDebug)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.profile.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-site")
}

// Post sends the payload and returns the body and status code. Blocking
// responses (403) rotate the session and retry with a short random backoff;
// transport errors retry the same way with a fixed pause. Any other non-200
// status is logged and handed back to the caller untouched. With MaxRetries
// retries the worst case is MaxRetries+1 requests.
func (c *Client) Post(ctx context.Context, url string, payload any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal payload: %w", err)
	}

	retries := c.cfg.MaxRetries
	for {
		respBody, status, err := c.doPost(ctx, url, body)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			if retries == 0 {
				return nil, 0, fmt.Errorf("request failed after retries: %w", err)
			}
			c.logEvent(ctx, fmt.Sprintf("network error: %v, retrying (%d left)", err, retries), domain.LevelWarning)
			c.sleep(ctx, 2*time.Second)
			c.initSession(ctx)
			retries--

		case status == http.StatusOK:
			return respBody, status, nil

		case status == http.StatusForbidden:
			if retries == 0 {
				c.logEvent(ctx, "blocked by anti-bot protection (403) after all retries", domain.LevelError)
				return nil, status, ErrBlocked
			}
			c.logEvent(ctx, fmt.Sprintf("access denied (403), rotating session (%d left)", retries), domain.LevelWarning)
			c.initSession(ctx)
			c.sleep(ctx, backoffDelay())
			retries--

		default:
			c.logEvent(ctx, fmt.Sprintf("HTTP error %d", status), domain.LevelError)
			return respBody, status, nil
		}
	}
}

func (c *Client) doPost(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// logEvent writes to both the process log and the shared DB log table.
func (c *Client) logEvent(ctx context.Context, message, level string) {
	switch level {
	case domain.LevelError:
		c.logger.Error(message)
	case domain.LevelWarning:
		c.logger.Warn(message)
	default:
		c.logger.Debug(message)
	}
	if err := c.events.Append(ctx, message, level); err != nil {
		c.logger.Warn("append db log", "error", err)
	}
}

// backoffDelay draws the 2-5s pause applied after a session rotation.
func backoffDelay() time.Duration {
	return 2*time.Second + rand.N(3*time.Second)
}

func wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
