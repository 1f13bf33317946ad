// Package scraper runs Apify actors and reads their datasets.
package scraper

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
)

const (
	PostsActor    = "clockworks~tiktok-scraper"
	ProfilesActor = "clockworks~tiktok-profile-scraper"
)

// ProviderError is an error reported by Apify itself, either in an error
// body or as a terminal run status.
type ProviderError struct {
	Type    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Type == "" {
		return "apify: " + e.Message
	}
	return fmt.Sprintf("apify %s: %s", e.Type, e.Message)
}

// Run is a finished actor run and its raw dataset.
type Run struct {
	ID        string
	DatasetID string
	Items     json.RawMessage
}

type Options struct {
	BaseURL      string
	Token        string
	PollInterval time.Duration
	// Timeout bounds one whole actor run, polling included.
	Timeout time.Duration
}

// Client implements the start, poll and fetch cycle of the Apify v2 API.
type Client struct {
	baseURL      string
	token        string
	pollInterval time.Duration
	timeout      time.Duration
	http         *http.Client
	log          *logrus.Entry
}

func NewClient(opts Options, log *logrus.Entry) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.apify.com/v2"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Minute
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		token:        opts.Token,
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
		http:         &http.Client{Timeout: 2 * time.Minute},
		log:          log.WithField("component", "apify"),
	}
}

type runData struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	StatusMessage    string `json:"statusMessage"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// RunActor starts actor with input, waits for it to finish and returns its
// dataset items.
func (c *Client) RunActor(ctx context.Context, actor string, input any) (*Run, error) {
	if c.token == "" {
		return nil, errors.New("apify token not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode actor input: %w", err)
	}

	var started struct {
		Data runData `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/acts/"+actor+"/runs", body, &started); err != nil {
		return nil, fmt.Errorf("failed to start actor %s: %w", actor, err)
	}
	log := c.log.WithFields(logrus.Fields{"actor": actor, "run_id": started.Data.ID})
	log.Info("actor run started")

	run, err := c.waitForRun(ctx, started.Data.ID)
	if err != nil {
		return nil, err
	}

	var items json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/datasets/"+run.DefaultDatasetID+"/items", nil, &items); err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", run.DefaultDatasetID, err)
	}
	log.WithField("dataset_id", run.DefaultDatasetID).Info("actor run finished")
	return &Run{ID: run.ID, DatasetID: run.DefaultDatasetID, Items: items}, nil
}

func (c *Client) waitForRun(ctx context.Context, runID string) (runData, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return runData{}, fmt.Errorf("waiting for run %s: %w", runID, ctx.Err())
		case <-ticker.C:
		}

		var status struct {
			Data runData `json:"data"`
		}
		if err := c.do(ctx, http.MethodGet, "/actor-runs/"+runID, nil, &status); err != nil {
			return runData{}, fmt.Errorf("failed to poll run %s: %w", runID, err)
		}
		switch status.Data.Status {
		case "SUCCEEDED":
			return status.Data, nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			msg := status.Data.StatusMessage
			if msg == "" {
				msg = "run " + runID + " finished with status " + status.Data.Status
			}
			return runData{}, &ProviderError{Type: strings.ToLower(status.Data.Status), Message: msg}
		}
	}
}

// do sends one request with the token attached and decodes the JSON reply
// into out. Transport errors and 5xx are retried.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	u := c.baseURL + path + "?token=" + url.QueryEscape(c.token)

	op := func() error {
		var rdr io.Reader
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rdr)
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 {
			perr := parseProviderError(resp.StatusCode, data)
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(perr)
			}
			return perr
		}
		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, 4), ctx))
}

func parseProviderError(status int, body []byte) error {
	var e struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return &ProviderError{Type: e.Error.Type, Message: e.Error.Message}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	return &ProviderError{Message: fmt.Sprintf("status %d: %s", status, msg)}
}
