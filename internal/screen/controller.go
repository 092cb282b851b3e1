// Package screen drives the news list: it starts loads, tracks their state
// and exposes a snapshot the API and the terminal reader render.
package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DeafMist/news-reader/internal/events"
	"github.com/DeafMist/news-reader/internal/logger"
	"github.com/DeafMist/news-reader/internal/models"
	"github.com/DeafMist/news-reader/internal/netcheck"
	"github.com/DeafMist/news-reader/internal/opener"
	"github.com/DeafMist/news-reader/internal/presenter"
	"github.com/DeafMist/news-reader/internal/settings"
	"github.com/DeafMist/news-reader/internal/thumbnail"
)

// State is the phase of the news list shown to the user.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateEmpty   State = "empty"
	StateError   State = "error"
	StateOffline State = "offline"
)

const (
	MessageOffline      = "No internet connection."
	MessageNoNews       = "No news found."
	MessageNetworkError = "Could not reach the news service."
	MessageParseError   = "Could not read the news response."

	outcomeOffline = "offline"
	publishTimeout = 30 * time.Second
)

var (
	// ErrNoSuchRow is returned for indexes outside the current list.
	ErrNoSuchRow = errors.New("no such row")
	// ErrNoURL is returned when the selected record has no link.
	ErrNoURL = errors.New("record has no url")
)

// HTTPErrorMessage is the empty-state text for a non-200 response.
func HTTPErrorMessage(status int) string {
	return fmt.Sprintf("Server responded with status %d.", status)
}

// Fetcher runs one search against the content API.
type Fetcher interface {
	Search(ctx context.Context, term string) models.FeedResult
}

// TermSource provides the current search term.
type TermSource interface {
	SearchTerm() string
}

// ChangeNotifier lets the controller follow preference updates.
type ChangeNotifier interface {
	OnChange(fn func(settings.Change))
}

// Thumbnails warms the image cache for freshly loaded rows.
type Thumbnails interface {
	Prefetch(ctx context.Context, urls []string) <-chan thumbnail.Result
}

// Recorder receives load and publish measurements.
type Recorder interface {
	RecordLoad(source, outcome string, records int, took time.Duration)
	RecordEvent(status string)
}

// Options holds the optional collaborators of a Controller.
type Options struct {
	// Source names the binary in events and metrics ("api", "worker", "reader").
	Source     string
	Presenter  *presenter.Presenter
	Checker    netcheck.Checker
	Opener     opener.Opener
	Thumbnails Thumbnails
	Publisher  events.Publisher
	Recorder   Recorder
	Now        func() time.Time
}

// View is a point-in-time copy of the screen.
type View struct {
	State      State           `json:"state" yaml:"state"`
	Message    string          `json:"message,omitempty" yaml:"message,omitempty"`
	SearchTerm string          `json:"search_term" yaml:"search_term"`
	LoadID     string          `json:"load_id,omitempty" yaml:"load_id,omitempty"`
	LoadedAt   *time.Time      `json:"loaded_at,omitempty" yaml:"loaded_at,omitempty"`
	Rows       []presenter.Row `json:"rows" yaml:"rows"`
}

// Controller keeps at most one load in flight. A new Refresh cancels the
// previous load and its result is discarded.
type Controller struct {
	fetcher Fetcher
	terms   TermSource
	opts    Options
	log     *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
	news   []models.News
	view   View

	bg sync.WaitGroup
}

// New returns an idle controller. Zero Options fields get no-op defaults.
func New(fetcher Fetcher, terms TermSource, opts Options, log *slog.Logger) *Controller {
	if opts.Source == "" {
		opts.Source = "reader"
	}
	if opts.Presenter == nil {
		opts.Presenter = presenter.New(presenter.Options{})
	}
	if opts.Checker == nil {
		opts.Checker = netcheck.Always
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Controller{
		fetcher: fetcher,
		terms:   terms,
		opts:    opts,
		log:     logger.OrDiscard(log),
		view:    View{State: StateIdle, SearchTerm: terms.SearchTerm(), Rows: []presenter.Row{}},
	}
}

// Watch reloads the list whenever the search term changes.
func (c *Controller) Watch(n ChangeNotifier) {
	n.OnChange(func(ch settings.Change) {
		if ch.Key != settings.KeySearchTerm {
			return
		}
		c.log.Info("search term updated, reloading", slog.String("term", ch.New))
		c.Refresh(context.Background())
	})
}

// Refresh starts a new load and returns its id. The load keeps the values of
// ctx but not its cancellation; it ends when superseded or on Close.
func (c *Controller) Refresh(ctx context.Context) string {
	id := uuid.NewString()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ""
	}
	// Read under mu so the load that wins always carries the newest term.
	term := c.terms.SearchTerm()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.view.State = StateLoading
	c.view.Message = ""
	c.view.SearchTerm = term
	c.view.LoadID = id
	c.mu.Unlock()

	c.log.Debug("load started", slog.String("load_id", id), slog.String("term", term))
	go c.load(loadCtx, gen, id, term, done)
	return id
}

func (c *Controller) load(ctx context.Context, gen uint64, id, term string, done chan struct{}) {
	defer close(done)
	start := c.opts.Now()

	if err := c.opts.Checker.Check(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("network unavailable", slog.String("load_id", id), slog.Any("err", err))
		c.finish(ctx, gen, id, term, models.NetworkFailure(err), true, start)
		return
	}

	res := c.fetcher.Search(ctx, term)
	c.finish(ctx, gen, id, term, res, false, start)
}

func (c *Controller) finish(ctx context.Context, gen uint64, id, term string, res models.FeedResult, offline bool, start time.Time) {
	now := c.opts.Now()
	took := now.Sub(start)

	c.mu.Lock()
	if gen != c.gen || ctx.Err() != nil {
		c.mu.Unlock()
		c.log.Debug("drop superseded load", slog.String("load_id", id))
		return
	}

	state, message := classify(res, offline)
	if res.OK() {
		c.news = res.News
	} else {
		c.news = nil
	}
	c.view.State = state
	c.view.Message = message
	c.view.Rows = c.opts.Presenter.Rows(c.news)
	c.view.LoadedAt = &now
	news := c.news
	c.bg.Add(1)
	c.mu.Unlock()

	outcome := res.Kind.String()
	if offline {
		outcome = outcomeOffline
	}
	c.log.Info("load finished",
		slog.String("load_id", id),
		slog.String("term", term),
		slog.String("outcome", outcome),
		slog.Int("records", len(news)),
		slog.Duration("took", took),
	)
	if c.opts.Recorder != nil {
		c.opts.Recorder.RecordLoad(c.opts.Source, outcome, len(news), took)
	}

	go func() {
		defer c.bg.Done()
		c.prefetch(ctx, news)
		c.publish(ctx, term, res, outcome, took, now)
	}()
}

func classify(res models.FeedResult, offline bool) (State, string) {
	if offline {
		return StateOffline, MessageOffline
	}
	switch res.Kind {
	case models.ResultOK:
		if len(res.News) == 0 {
			return StateEmpty, MessageNoNews
		}
		return StateReady, ""
	case models.ResultHTTPError:
		return StateError, HTTPErrorMessage(res.StatusCode)
	case models.ResultParseError:
		return StateError, MessageParseError
	default:
		return StateError, MessageNetworkError
	}
}

func (c *Controller) prefetch(ctx context.Context, news []models.News) {
	if c.opts.Thumbnails == nil || len(news) == 0 {
		return
	}
	urls := make([]string, 0, len(news))
	for _, n := range news {
		if n.HasThumbnail() {
			urls = append(urls, n.ThumbnailURL)
		}
	}
	for res := range c.opts.Thumbnails.Prefetch(ctx, urls) {
		if res.Err != nil && !errors.Is(res.Err, context.Canceled) {
			c.log.Debug("thumbnail prefetch failed", slog.String("url", res.URL), slog.Any("err", res.Err))
		}
	}
}

func (c *Controller) publish(ctx context.Context, term string, res models.FeedResult, outcome string, took time.Duration, at time.Time) {
	event := models.NewFeedEvent(c.opts.Source, term, res, took, at)
	event.Outcome = outcome

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	status := "ok"
	if err := c.opts.Publisher.Publish(pubCtx, event); err != nil {
		status = "error"
		c.log.Error("publish feed event", slog.String("id", event.ID), slog.Any("err", err))
	}
	if c.opts.Recorder != nil {
		c.opts.Recorder.RecordEvent(status)
	}
}

// View returns a copy of the current screen state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.view
	v.Rows = append([]presenter.Row(nil), c.view.Rows...)
	if v.Rows == nil {
		v.Rows = []presenter.Row{}
	}
	if c.view.LoadedAt != nil {
		ts := *c.view.LoadedAt
		v.LoadedAt = &ts
	}
	return v
}

// News returns a copy of the records behind the current rows.
func (c *Controller) News() []models.News {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.News(nil), c.news...)
}

// Wait blocks until no load is in flight or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		done := c.done
		c.mu.Unlock()
		if done == nil {
			return nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		c.mu.Lock()
		current := c.done
		c.mu.Unlock()
		if current == done {
			return nil
		}
	}
}

// HasThumbnail reports whether rawURL is the thumbnail of a current record.
func (c *Controller) HasThumbnail(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.news {
		if n.ThumbnailURL == rawURL {
			return true
		}
	}
	return false
}

// URL returns the link of the record at index.
func (c *Controller) URL(index int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.news) {
		return "", fmt.Errorf("%w: %d", ErrNoSuchRow, index)
	}
	u := c.news[index].URL
	if u == "" {
		return "", fmt.Errorf("%w: row %d", ErrNoURL, index)
	}
	return u, nil
}

// UseOpener replaces the opener used by Open.
func (c *Controller) UseOpener(o opener.Opener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Opener = o
}

// Open hands the record's link to the configured opener.
func (c *Controller) Open(ctx context.Context, index int) error {
	u, err := c.URL(index)
	if err != nil {
		return err
	}

	c.mu.Lock()
	o := c.opts.Opener
	c.mu.Unlock()
	if o == nil {
		return fmt.Errorf("open %s: no opener configured", u)
	}
	return o.Open(ctx, u)
}

// Close cancels the in-flight load and waits for background work to stop.
// Refresh is a no-op afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.bg.Wait()
}
