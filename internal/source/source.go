/*
Package source fetches raw rental listings for a configured area.
*/
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourorg/rentradar/internal/listing"
	"github.com/yourorg/rentradar/internal/logger"
)

var ErrStatus = errors.New("source: unexpected status")

// Area is one search the orchestrator runs each cycle.
type Area struct {
	Code     string `json:"code"`
	Location string `json:"location"`
}

type Source interface {
	Fetch(ctx context.Context, area Area) ([]listing.RawListing, error)
}

type ClientConfig struct {
	UserAgent string
	Retries   int
	Timeout   time.Duration
	Logger    *logger.Logger
}

type client struct {
	http *retryablehttp.Client
	ua   string
}

func newClient(cfg ClientConfig) *client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.RetryMax = cfg.Retries
	rc.HTTPClient.Timeout = cfg.Timeout
	if rc.HTTPClient.Timeout <= 0 {
		rc.HTTPClient.Timeout = 15 * time.Second
	}
	rc.Logger = nil
	if cfg.Logger != nil {
		rc.Logger = cfg.Logger.Leveled()
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	return &client{http: rc, ua: ua}
}

func (c *client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", accept)
	req.Header.Set("user-agent", c.ua)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d from %s", ErrStatus, resp.StatusCode, url)
	}
	return readLimited(resp.Body, 8<<20)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("source: payload too large")
	}
	return b, nil
}
