// Package geocode resolves a country name to its GeoNames record.
package geocode

import (
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

	"creator-scout-go/internal/filter"
)

// ErrNoMatch means the service answered but found nothing.
var ErrNoMatch = errors.New("no geocode match")

type Options struct {
	BaseURL  string
	Username string
	Timeout  time.Duration
}

// Client queries the GeoNames searchJSON endpoint, consulting cache first.
type Client struct {
	baseURL  string
	username string
	http     *http.Client
	cache    Cache
	log      *logrus.Entry
}

func New(opts Options, cache Cache, log *logrus.Entry) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://api.geonames.org"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if cache == nil {
		cache = NopCache{}
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		username: opts.Username,
		http:     &http.Client{Timeout: opts.Timeout},
		cache:    cache,
		log:      log.WithField("component", "geocode"),
	}
}

// Lookup returns the first country matching name. Cache failures are logged
// and fall through to the live service.
func (c *Client) Lookup(ctx context.Context, name string) (*filter.Country, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, ErrNoMatch
	}
	if cached, err := c.cache.Get(ctx, key); err != nil {
		c.log.WithField("error", err.Error()).Warn("geocode cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	country, err := c.search(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, country); err != nil {
		c.log.WithField("error", err.Error()).Warn("geocode cache write failed")
	}
	return country, nil
}

func (c *Client) search(ctx context.Context, name string) (*filter.Country, error) {
	if c.username == "" {
		return nil, errors.New("geonames username not configured")
	}
	q := url.Values{}
	q.Set("name", name)
	q.Set("maxRows", "1")
	q.Set("username", c.username)
	endpoint := c.baseURL + "/searchJSON?" + q.Encode()

	var parsed struct {
		TotalResultsCount int              `json:"totalResultsCount"`
		Geonames          []filter.Country `json:"geonames"`
		Status            *struct {
			Message string `json:"message"`
			Value   int    `json:"value"`
		} `json:"status"`
	}
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("geonames status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("geonames status %d", resp.StatusCode))
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("decode geonames reply: %w", err))
		}
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, 3), ctx)); err != nil {
		return nil, err
	}

	if parsed.Status != nil {
		return nil, fmt.Errorf("geonames error %d: %s", parsed.Status.Value, parsed.Status.Message)
	}
	if parsed.TotalResultsCount == 0 || len(parsed.Geonames) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoMatch, name)
	}
	country := parsed.Geonames[0]
	return &country, nil
}
