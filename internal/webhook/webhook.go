package webhook

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

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"creator-scout-go/internal/metrics"
	"creator-scout-go/internal/types"
)

var ErrNotConfigured = errors.New("webhook url not configured")

// Client posts finished datasets to the sheet-building workflows and
// returns the sheet URL each workflow replies with.
type Client struct {
	contentURL string
	creatorURL string
	httpClient *http.Client
	maxRetry   time.Duration
	log        *logrus.Entry
}

type Options struct {
	ContentURL string
	CreatorURL string
	Timeout    time.Duration
}

func New(opts Options, log *logrus.Entry) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Client{
		contentURL: opts.ContentURL,
		creatorURL: opts.CreatorURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		maxRetry:   opts.Timeout,
		log:        log.WithField("module", "webhook"),
	}
}

// DeliverContent sends the content dataset and returns the sheet URL.
func (c *Client) DeliverContent(ctx context.Context, jobID string, rows []types.ContentRecord) (string, error) {
	return c.deliver(ctx, "content", c.contentURL, jobID, rows)
}

// DeliverCreators sends the creator dataset and returns the sheet URL.
func (c *Client) DeliverCreators(ctx context.Context, jobID string, rows []types.CreatorRecord) (string, error) {
	return c.deliver(ctx, "creator", c.creatorURL, jobID, rows)
}

type reply struct {
	URL string `json:"url"`
}

func (c *Client) deliver(ctx context.Context, agent, base, jobID string, rows any) (string, error) {
	if base == "" {
		metrics.IncWebhook(agent, "skipped")
		return "", fmt.Errorf("%s: %w", agent, ErrNotConfigured)
	}
	target, err := withJobID(base, jobID)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode %s dataset: %w", agent, err)
	}

	log := c.log.WithFields(logrus.Fields{"agent": agent, "job_id": jobID})
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxRetry
	var (
		out     reply
		lastErr error
	)
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("webhook server error (%d): %s", resp.StatusCode, string(body))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("webhook rejected (%d): %s", resp.StatusCode, string(body))
			return backoff.Permanent(lastErr)
		}
		out = reply{}
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &out); err != nil {
				lastErr = fmt.Errorf("decode webhook reply: %v body=%s", err, string(body))
				return backoff.Permanent(lastErr)
			}
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		metrics.IncWebhook(agent, "failed")
		if lastErr != nil {
			err = lastErr
		}
		log.WithError(err).Warn("webhook delivery failed")
		return "", fmt.Errorf("deliver %s dataset: %w", agent, err)
	}
	metrics.IncWebhook(agent, "ok")
	log.WithField("sheet_url", out.URL).Info("dataset delivered")
	return out.URL, nil
}

func withJobID(base, jobID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse webhook url: %w", err)
	}
	q := u.Query()
	q.Set("jobId", jobID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
