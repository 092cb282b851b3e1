package guardian

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DeafMist/news-reader/internal/config"
	"github.com/DeafMist/news-reader/internal/logger"
	"github.com/DeafMist/news-reader/internal/models"
)

const maxBodyBytes = 4 << 20

// Options configures a Client. Zero timeouts fall back to 15s connect and 10s read.
type Options struct {
	Endpoint       string
	APIKey         string
	PageSize       int
	ShowFields     string
	OrderBy        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Location       *time.Location
}

// Client fetches and parses search pages from the content API.
type Client struct {
	http        *http.Client
	opts        Options
	readTimeout time.Duration
	log         *slog.Logger
}

// New builds a Client with a dedicated transport honoring the connect and read timeouts.
func New(opts Options, log *slog.Logger) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 15 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Endpoint == "" {
		opts.Endpoint = config.DefaultEndpoint
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ReadTimeout,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		http:        &http.Client{Transport: transport},
		opts:        opts,
		readTimeout: opts.ReadTimeout,
		log:         logger.OrDiscard(log).With("component", "guardian"),
	}
}

// NewFromConfig builds a Client from the shared configuration.
func NewFromConfig(cfg config.Common, log *slog.Logger) *Client {
	return New(Options{
		Endpoint:       cfg.Endpoint,
		APIKey:         cfg.APIKey,
		PageSize:       cfg.PageSize,
		ShowFields:     cfg.ShowFields,
		OrderBy:        cfg.OrderBy,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		Location:       cfg.Location(),
	}, log)
}

// Endpoint returns the configured search endpoint.
func (c *Client) Endpoint() string {
	return c.opts.Endpoint
}

// SearchURL builds the request URL for a search term.
func (c *Client) SearchURL(term string) (string, error) {
	return BuildSearchURL(c.opts.Endpoint, Query{
		Term:       term,
		PageSize:   c.opts.PageSize,
		ShowFields: c.opts.ShowFields,
		OrderBy:    c.opts.OrderBy,
		APIKey:     c.opts.APIKey,
	})
}

// Search fetches the newest page of results for term.
func (c *Client) Search(ctx context.Context, term string) models.FeedResult {
	requestURL, err := c.SearchURL(term)
	if err != nil {
		c.log.Error("build search url", slog.Any("err", err))
		return models.NetworkFailure(err)
	}
	return c.Fetch(ctx, requestURL)
}

// Fetch performs a single GET against requestURL and maps the outcome to a
// FeedResult. It never retries.
func (c *Client) Fetch(ctx context.Context, requestURL string) models.FeedResult {
	c.log.Debug("fetching feed", slog.String("url", redact(requestURL)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		c.log.Error("create request", slog.Any("err", err))
		return models.NetworkFailure(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("perform request", slog.Any("err", err))
		return models.NetworkFailure(fmt.Errorf("perform request: %w", err))
	}
	defer resp.Body.Close()

	// the transport bounds the wait for headers; this bounds the body read
	readTimer := time.AfterFunc(c.readTimeout, cancel)
	defer readTimer.Stop()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.log.Error("unexpected status",
			slog.Int("status", resp.StatusCode),
			slog.String("body", strings.TrimSpace(string(snippet))),
		)
		return models.HTTPFailure(resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.log.Error("read response body", slog.Any("err", err))
		return models.NetworkFailure(fmt.Errorf("read response body: %w", err))
	}

	news, err := ParseSearchResponse(body, c.opts.Location, c.log)
	if err != nil {
		c.log.Error("parse search response", slog.Any("err", err))
		return models.ParseFailure(err)
	}

	c.log.Debug("feed fetched", slog.Int("count", len(news)))
	return models.Success(news)
}

// Ping checks that the API host answers HTTP at all. Any status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.opts.Endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping content api: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Query holds the parameters of a search request.
type Query struct {
	Term       string
	PageSize   int
	ShowFields string
	OrderBy    string
	APIKey     string
}

// BuildSearchURL appends the search parameters to base, keeping any query
// parameters base already carries.
func BuildSearchURL(base string, q Query) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("endpoint %q: %w", base, ErrInvalidEndpoint)
	}

	values := u.Query()
	values.Set("q", q.Term)
	if q.PageSize > 0 {
		values.Set("page-size", strconv.Itoa(q.PageSize))
	}
	if q.ShowFields != "" {
		values.Set("show-fields", q.ShowFields)
	}
	if q.OrderBy != "" {
		values.Set("order-by", q.OrderBy)
	}
	if q.APIKey != "" {
		values.Set("api-key", q.APIKey)
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// ErrInvalidEndpoint is returned for endpoints that are not http(s) URLs.
var ErrInvalidEndpoint = errors.New("endpoint must be an http or https URL")

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	values := u.Query()
	if values.Has("api-key") {
		values.Set("api-key", "***")
		u.RawQuery = values.Encode()
	}
	return u.String()
}
