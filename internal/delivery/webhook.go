/*
Package delivery posts evaluated leads to the notification sink with bounded
retries.
*/
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourorg/rentradar/internal/listing"
	"github.com/yourorg/rentradar/internal/logger"
)

// Sink delivers one lead. A nil error means the sink accepted it.
type Sink interface {
	Deliver(ctx context.Context, l listing.EvaluatedListing) error
}

// StatusError is returned when the sink kept answering with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sink returned %d", e.Code)
	}
	return fmt.Sprintf("sink returned %d: %s", e.Code, e.Body)
}

type WebhookConfig struct {
	URL       string
	Mode      Mode
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Timeout   time.Duration
	Logger    *logger.Logger
}

type Webhook struct {
	url  string
	mode Mode
	http *retryablehttp.Client
	log  *logger.Logger
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay * time.Duration(cfg.Attempts)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeJSON
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.Attempts - 1
	rc.RetryWaitMin = cfg.BaseDelay
	rc.RetryWaitMax = cfg.MaxDelay
	rc.Backoff = linearBackoff
	rc.CheckRetry = retryNon2xx
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = nil
	if cfg.Logger != nil {
		rc.Logger = cfg.Logger.Leveled()
	}

	return &Webhook{url: cfg.URL, mode: cfg.Mode, http: rc, log: cfg.Logger}
}

func (w *Webhook) Deliver(ctx context.Context, l listing.EvaluatedListing) error {
	body, err := w.encode(l)
	if err != nil {
		return fmt.Errorf("delivery: encode %s: %w", l.ID, err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.url, body)
	if err != nil {
		return fmt.Errorf("delivery: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", IdempotencyKey(l.ID))

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("delivery: post %s: %w", l.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("delivery: post %s: %w", l.ID, &StatusError{Code: resp.StatusCode, Body: string(snippet)})
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (w *Webhook) encode(l listing.EvaluatedListing) ([]byte, error) {
	if w.mode == ModeText {
		return json.Marshal(TextMessage{Message: Format(l)})
	}
	return json.Marshal(NewPayload(l))
}

// IdempotencyKey is stable for a listing so a sink can drop retried posts.
func IdempotencyKey(listingID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("rentradar:listing:"+listingID)).String()
}

// linearBackoff waits min, 2*min, 3*min... capped at max.
func linearBackoff(min, max time.Duration, attemptNum int, _ *http.Response) time.Duration {
	d := min * time.Duration(attemptNum+1)
	if d > max {
		return max
	}
	return d
}

// retryNon2xx treats every transport error and every non-2xx status as
// retryable.
func retryNon2xx(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	return resp.StatusCode < 200 || resp.StatusCode > 299, nil
}
