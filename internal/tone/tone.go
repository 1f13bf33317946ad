// Package tone calls the audio inference model that labels a waveform
// (speech, music, singing, ...) with per-class scores.
package tone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Label is one scored audio class.
type Label struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Client struct {
	url        string
	httpClient *http.Client
	maxRetry   time.Duration
	log        *logrus.Entry
}

func New(url string, timeout time.Duration, log *logrus.Entry) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		maxRetry:   timeout,
		log:        log.WithField("component", "tone-classifier"),
	}
}

// Classify sends the WAV file at path and returns labels ordered by
// descending score.
func (c *Client) Classify(ctx context.Context, path string) ([]Label, error) {
	if c.url == "" {
		return nil, errors.New("TONE_URL not set")
	}
	payload, contentType, err := form(path)
	if err != nil {
		return nil, err
	}

	var out struct {
		Labels []Label `json:"labels"`
	}
	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		switch {
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("tone model status %d", resp.StatusCode)
			return lastErr
		case resp.StatusCode >= 400:
			lastErr = fmt.Errorf("tone model rejected audio (%d): %s", resp.StatusCode, string(body))
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(body, &out); err != nil {
			lastErr = fmt.Errorf("decode tone response: %w", err)
			return backoff.Permanent(lastErr)
		}
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxRetry
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}

	sort.SliceStable(out.Labels, func(i, j int) bool { return out.Labels[i].Score > out.Labels[j].Score })
	c.log.WithField("labels", len(out.Labels)).Debug("tone classified")
	return out.Labels, nil
}

func form(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open waveform: %w", err)
	}
	defer f.Close()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return b.Bytes(), w.FormDataContentType(), nil
}

// TopLabels returns the names of the first k labels.
func TopLabels(labels []Label, k int) []string {
	if k > len(labels) {
		k = len(labels)
	}
	out := make([]string, 0, k)
	for _, l := range labels[:k] {
		out = append(out, l.Label)
	}
	return out
}
