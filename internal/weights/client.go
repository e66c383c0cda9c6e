// Package weights proxies the upstream weights/summary service.
package weights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no upstream URL is set.
var ErrNotConfigured = errors.New("weights upstream not configured")

const cacheKey = "weights:summary"

// Cache is the subset of cache.Client the proxy uses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Client struct {
	client *resty.Client
	url    string
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewClient builds the proxy. cache may be nil, in which case every call goes
// upstream.
func NewClient(url string, timeout, ttl time.Duration, cache Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &Client{client: client, url: url, cache: cache, ttl: ttl, logger: logger}
}

// Summary returns the upstream JSON document, served from cache while fresh.
// Cache failures degrade to an upstream call; upstream failures are returned.
func (c *Client) Summary(ctx context.Context) ([]byte, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}

	if c.cache != nil {
		b, ok, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err != nil:
			c.logger.Warn("weights cache read failed", zap.Error(err))
		case ok:
			return b, nil
		}
	}

	body, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body, c.ttl); err != nil {
			c.logger.Warn("weights cache write failed", zap.Error(err))
		}
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	resp, err := c.client.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", c.url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("weights upstream returned status %d", resp.StatusCode())
	}
	body := resp.Body()
	if !sonic.Valid(body) {
		return nil, errors.New("weights upstream returned invalid JSON")
	}
	return body, nil
}
