// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package scopus is a small client for the Elsevier Scopus APIs: author
// id validation and document search by author.
//
// Errors returned here carry context but no oops code, so the caller's
// code is the one reported.
package scopus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultBaseURL is the production Elsevier API endpoint.
const DefaultBaseURL = "https://api.elsevier.com"

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = 200 * time.Millisecond
	pageSize          = 25
	// maxDocuments caps a single import.
	maxDocuments = 500
)

// Config configures a Client.
type Config struct {
	APIKey     string        `koanf:"api_key"`
	BaseURL    string        `koanf:"base_url"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries uint64        `koanf:"max_retries"`
}

// Document is one search result.
type Document struct {
	ScopusID  string
	Title     string
	Venue     string
	CoverDate *time.Time
	DOI       string
	CitedBy   int
}

// Client calls the Scopus APIs. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    *url.URL
	http       *http.Client
	maxRetries uint64
	backoff    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithBackoff sets the base delay of the exponential retry backoff.
func WithBackoff(d time.Duration) Option {
	return func(cl *Client) { cl.backoff = d }
}

// New creates a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, oops.In("scopus").Errorf("api key is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, oops.In("scopus").With("base_url", base).Errorf("invalid base url")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = defaultMaxRetries
	}

	c := &Client{
		apiKey:     cfg.APIKey,
		baseURL:    u,
		http:       &http.Client{Timeout: timeout},
		maxRetries: retries,
		backoff:    defaultBackoff,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return "scopus responded " + strconv.Itoa(e.status)
}

// get performs a GET with retries on transport errors, 429 and 5xx. It
// returns the body of a 2xx response, or a *statusError for other statuses.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	var body []byte
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("X-ELS-APIKey", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.WarnContext(ctx, "scopus request failed", "path", path, "error", err)
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return retry.RetryableError(err)
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body = data
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			c.logger.WarnContext(ctx, "scopus unavailable", "path", path, "status", resp.StatusCode)
			return retry.RetryableError(&statusError{status: resp.StatusCode})
		default:
			return &statusError{status: resp.StatusCode}
		}
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// ValidateAuthorID reports whether Scopus knows the author id. A 400 or 404
// answer means the id is invalid; outages are returned as errors.
func (c *Client) ValidateAuthorID(ctx context.Context, authorID string) (bool, error) {
	authorID = strings.TrimSpace(authorID)
	if authorID == "" {
		return false, nil
	}
	_, err := c.get(ctx, "/content/author/author_id/"+url.PathEscape(authorID), url.Values{"view": {"LIGHT"}})
	if err == nil {
		return true, nil
	}
	var se *statusError
	if errors.As(err, &se) && (se.status == http.StatusNotFound || se.status == http.StatusBadRequest) {
		return false, nil
	}
	return false, oops.In("scopus").With("author_id", authorID).Wrap(err)
}

type searchResponse struct {
	Results struct {
		Total   string        `json:"opensearch:totalResults"`
		Entries []searchEntry `json:"entry"`
	} `json:"search-results"`
}

type searchEntry struct {
	Error       string `json:"error"`
	Identifier  string `json:"dc:identifier"`
	Title       string `json:"dc:title"`
	Publication string `json:"prism:publicationName"`
	CoverDate   string `json:"prism:coverDate"`
	DOI         string `json:"prism:doi"`
	CitedBy     string `json:"citedby-count"`
}

func (e searchEntry) document() Document {
	d := Document{
		ScopusID: strings.TrimPrefix(e.Identifier, "SCOPUS_ID:"),
		Title:    e.Title,
		Venue:    e.Publication,
		DOI:      e.DOI,
	}
	if t, err := time.Parse(time.DateOnly, e.CoverDate); err == nil {
		d.CoverDate = &t
	}
	d.CitedBy, _ = strconv.Atoi(e.CitedBy)
	return d
}

// FetchPublications pages through the author's documents.
func (c *Client) FetchPublications(ctx context.Context, authorID string) ([]Document, error) {
	var docs []Document
	for start := 0; start < maxDocuments; start += pageSize {
		query := url.Values{
			"query": {"AU-ID(" + authorID + ")"},
			"start": {strconv.Itoa(start)},
			"count": {strconv.Itoa(pageSize)},
			"field": {"dc:identifier,dc:title,prism:publicationName,prism:coverDate,prism:doi,citedby-count"},
		}
		body, err := c.get(ctx, "/content/search/scopus", query)
		if err != nil {
			return nil, oops.In("scopus").With("author_id", authorID).With("start", start).Wrap(err)
		}

		var resp searchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, oops.In("scopus").With("author_id", authorID).Wrapf(err, "decode search response")
		}
		for _, e := range resp.Results.Entries {
			// An empty result set comes back as a single entry carrying "error".
			if e.Error != "" || e.Identifier == "" {
				continue
			}
			docs = append(docs, e.document())
		}

		total, _ := strconv.Atoi(resp.Results.Total)
		if len(resp.Results.Entries) < pageSize || start+pageSize >= total {
			break
		}
	}
	return docs, nil
}
