package faf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/foxseedlab/brackman/internal/faf"
	"golang.org/x/time/rate"
)

const (
	maxAttempts      = 3
	maxErrorBodySize = 4096
)

type HTTPClient struct {
	baseURL         *url.URL
	client          *http.Client
	limiter         *rate.Limiter
	initialInterval time.Duration
}

// NewHTTPClient expects client to attach credentials itself, e.g. an
// oauth2 client credentials client.
func NewHTTPClient(baseURL string, client *http.Client, limiter *rate.Limiter) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid faf api base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &HTTPClient{
		baseURL:         u,
		client:          client,
		limiter:         limiter,
		initialInterval: 500 * time.Millisecond,
	}, nil
}

func (c *HTTPClient) GetPlayerID(ctx context.Context, username string) (string, error) {
	players, err := c.findPlayers(ctx, "login=="+quoteFilterValue(username))
	if err != nil {
		return "", err
	}
	if len(players) == 0 {
		return "", faf.ErrPlayerNotFound
	}
	return players[0].ID, nil
}

func (c *HTTPClient) GetPlayer(ctx context.Context, username string) (*faf.Player, error) {
	players, err := c.findPlayers(ctx, "login=="+quoteFilterValue(username))
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		slog.Debug("no current login match, trying previous names", "username", username)
		players, err = c.findPlayers(ctx, "names.name=="+quoteFilterValue(username))
		if err != nil {
			return nil, err
		}
	}
	if len(players) == 0 {
		return nil, faf.ErrPlayerNotFound
	}
	p := players[0]
	return &faf.Player{
		ID:        p.ID,
		Login:     p.Login,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

func (c *HTTPClient) GetLastMatch(ctx context.Context, playerID string) (faf.Document, error) {
	q := url.Values{}
	q.Set("filter", "playerStats.player.id=="+playerID)
	q.Set("sort", "-id")
	q.Set("page[size]", "1")
	q.Set("include", "host,playerStats.player,mapVersion,mapVersion.map")

	body, err := c.get(ctx, "game", q)
	if err != nil {
		return faf.Document{}, err
	}
	return faf.DecodeDocument(strings.NewReader(body))
}

func (c *HTTPClient) findPlayers(ctx context.Context, filter string) ([]faf.PlayerResource, error) {
	q := url.Values{}
	q.Set("filter", filter)
	q.Set("page[size]", "1")

	body, err := c.get(ctx, "player", q)
	if err != nil {
		return nil, err
	}
	doc, err := faf.DecodePlayerDocument(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return doc.Players(), nil
}

// get performs a rate limited GET, retrying throttled and server errors.
func (c *HTTPClient) get(ctx context.Context, resource string, query url.Values) (string, error) {
	u := c.baseURL.ResolveReference(&url.URL{Path: resource, RawQuery: query.Encode()})
	policy := &retryAfterBackOff{inner: backoff.NewExponentialBackOff()}
	policy.inner.InitialInterval = c.initialInterval

	return backoff.Retry(ctx, func() (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/vnd.api+json")
		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		if isHTTPSuccessStatus(resp.StatusCode) {
			return string(b), nil
		}

		apiErr := &faf.APIError{StatusCode: resp.StatusCode, Body: truncateBody(b)}
		if !isRetryableStatus(resp.StatusCode) {
			return "", backoff.Permanent(apiErr)
		}
		policy.hint = parseRetryAfter(resp.Header.Get("Retry-After"))
		slog.Warn("faf api request failed, retrying", "resource", resource, "status", resp.StatusCode)
		return "", apiErr
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(maxAttempts))
}

// retryAfterBackOff prefers a server supplied delay over the exponential one.
type retryAfterBackOff struct {
	inner *backoff.ExponentialBackOff
	hint  time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.inner.NextBackOff()
	if b.hint > 0 {
		next = b.hint
		b.hint = 0
	}
	return next
}

func (b *retryAfterBackOff) Reset() {
	b.inner.Reset()
	b.hint = 0
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// quoteFilterValue quotes values for RSQL filters so spaces and operators
// in usernames survive.
func quoteFilterValue(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}

func truncateBody(b []byte) string {
	if len(b) > maxErrorBodySize {
		b = b[:maxErrorBodySize]
	}
	return string(b)
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

var _ faf.Client = (*HTTPClient)(nil)
