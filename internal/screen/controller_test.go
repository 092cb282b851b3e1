package screen_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/news-reader/internal/models"
	"github.com/DeafMist/news-reader/internal/netcheck"
	"github.com/DeafMist/news-reader/internal/opener"
	"github.com/DeafMist/news-reader/internal/presenter"
	"github.com/DeafMist/news-reader/internal/screen"
	"github.com/DeafMist/news-reader/internal/settings"
	"github.com/DeafMist/news-reader/internal/thumbnail"
)

type staticTerm string

func (s staticTerm) SearchTerm() string { return string(s) }

type stubFetcher struct {
	mu      sync.Mutex
	terms   []string
	results map[string]models.FeedResult
	block   map[string]chan struct{}
}

func (f *stubFetcher) Search(ctx context.Context, term string) models.FeedResult {
	f.mu.Lock()
	f.terms = append(f.terms, term)
	gate := f.block[term]
	res, ok := f.results[term]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.NetworkFailure(ctx.Err())
		}
	}
	if !ok {
		return models.Success(nil)
	}
	return res
}

func (f *stubFetcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.terms...)
}

type stubPublisher struct {
	mu     sync.Mutex
	events []models.FeedEvent
}

func (p *stubPublisher) Publish(_ context.Context, ev models.FeedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

func (p *stubPublisher) all() []models.FeedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.FeedEvent(nil), p.events...)
}

type stubRecorder struct {
	mu       sync.Mutex
	outcomes []string
	events   []string
}

func (r *stubRecorder) RecordLoad(_, outcome string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *stubRecorder) RecordEvent(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, status)
}

type stubThumbnails struct {
	mu   sync.Mutex
	urls []string
}

func (s *stubThumbnails) Prefetch(_ context.Context, urls []string) <-chan thumbnail.Result {
	s.mu.Lock()
	s.urls = append(s.urls, urls...)
	s.mu.Unlock()

	out := make(chan thumbnail.Result, len(urls))
	for _, u := range urls {
		out <- thumbnail.Result{URL: u}
	}
	close(out)
	return out
}

func sampleNews() []models.News {
	ts := time.Date(2018, 7, 3, 10, 15, 0, 0, time.UTC)
	return []models.News{
		{Headline: "Headline A", Summary: "Summary A", Section: "World", PublishedAt: &ts, URL: "https://x/a", ThumbnailURL: "https://img/a.jpg"},
		{Headline: "Headline B", Summary: "Summary B", Author: "Jane Doe", Section: "Sport", URL: "https://x/b"},
		{Headline: "Headline C", Section: "Culture"},
	}
}

func waitLoaded(t *testing.T, c *screen.Controller) screen.View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
	return c.View()
}

func TestRefreshReady(t *testing.T) {
	fetcher := &stubFetcher{results: map[string]models.FeedResult{"brexit": models.Success(sampleNews())}}
	pub := &stubPublisher{}
	rec := &stubRecorder{}
	thumbs := &stubThumbnails{}

	c := screen.New(fetcher, staticTerm("brexit"), screen.Options{
		Source:     "api",
		Presenter:  presenter.New(presenter.Options{Locale: "en-GB"}),
		Publisher:  pub,
		Recorder:   rec,
		Thumbnails: thumbs,
	}, nil)

	require.Equal(t, screen.StateIdle, c.View().State)
	id := c.Refresh(context.Background())
	require.NotEmpty(t, id)

	view := waitLoaded(t, c)
	require.Equal(t, screen.StateReady, view.State)
	require.Empty(t, view.Message)
	require.Equal(t, "brexit", view.SearchTerm)
	require.Equal(t, id, view.LoadID)
	require.NotNil(t, view.LoadedAt)
	require.Len(t, view.Rows, 3)
	require.Equal(t, "Headline A", view.Rows[0].Headline)
	require.Equal(t, "3 Jul 2018", view.Rows[0].Date)
	require.Equal(t, "By Jane Doe", view.Rows[1].Author)
	require.Len(t, c.News(), 3)
	require.Equal(t, []string{"brexit"}, fetcher.calls())

	c.Close()

	events := pub.all()
	require.Len(t, events, 1)
	require.Equal(t, "api", events[0].Source)
	require.Equal(t, "brexit", events[0].SearchTerm)
	require.Equal(t, "ok", events[0].Outcome)
	require.Equal(t, 3, events[0].Count)
	require.Equal(t, []string{"ok"}, rec.outcomes)
	require.Equal(t, []string{"ok"}, rec.events)
	require.Equal(t, []string{"https://img/a.jpg"}, thumbs.urls)
}

func TestRefreshOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		result  models.FeedResult
		state   screen.State
		message string
	}{
		{name: "empty", result: models.Success(nil), state: screen.StateEmpty, message: screen.MessageNoNews},
		{name: "http", result: models.HTTPFailure(503, errors.New("down")), state: screen.StateError, message: "Server responded with status 503."},
		{name: "network", result: models.NetworkFailure(errors.New("reset")), state: screen.StateError, message: screen.MessageNetworkError},
		{name: "parse", result: models.ParseFailure(errors.New("bad json")), state: screen.StateError, message: screen.MessageParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{results: map[string]models.FeedResult{"q": tt.result}}
			c := screen.New(fetcher, staticTerm("q"), screen.Options{}, nil)
			defer c.Close()

			c.Refresh(context.Background())
			view := waitLoaded(t, c)
			require.Equal(t, tt.state, view.State)
			require.Equal(t, tt.message, view.Message)
			require.NotNil(t, view.Rows)
			require.Empty(t, view.Rows)
		})
	}
}

func TestRefreshOffline(t *testing.T) {
	fetcher := &stubFetcher{}
	pub := &stubPublisher{}
	c := screen.New(fetcher, staticTerm("q"), screen.Options{
		Checker:   netcheck.Func(func(context.Context) error { return errors.New("no route") }),
		Publisher: pub,
	}, nil)

	c.Refresh(context.Background())
	view := waitLoaded(t, c)
	c.Close()

	require.Equal(t, screen.StateOffline, view.State)
	require.Equal(t, screen.MessageOffline, view.Message)
	require.Empty(t, fetcher.calls())
	require.Len(t, pub.all(), 1)
	require.Equal(t, "offline", pub.all()[0].Outcome)
}

func TestRefreshSupersedesInFlightLoad(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &stubFetcher{
		results: map[string]models.FeedResult{
			"old": models.Success([]models.News{{Headline: "stale", URL: "https://x/old"}}),
			"new": models.Success([]models.News{{Headline: "fresh", URL: "https://x/new"}}),
		},
		block: map[string]chan struct{}{"old": gate},
	}

	term := &mutableTerm{value: "old"}
	pub := &stubPublisher{}
	c := screen.New(fetcher, term, screen.Options{Publisher: pub}, nil)

	c.Refresh(context.Background())
	require.Eventually(t, func() bool { return len(fetcher.calls()) == 1 }, time.Second, 5*time.Millisecond)

	term.set("new")
	c.Refresh(context.Background())
	close(gate)

	view := waitLoaded(t, c)
	c.Close()

	require.Equal(t, screen.StateReady, view.State)
	require.Equal(t, "new", view.SearchTerm)
	require.Len(t, view.Rows, 1)
	require.Equal(t, "fresh", view.Rows[0].Headline)

	events := pub.all()
	require.Len(t, events, 1)
	require.Equal(t, "new", events[0].SearchTerm)
}

func TestRefreshKeepsNewestTermWhenReadsInterleave(t *testing.T) {
	fetcher := &stubFetcher{
		results: map[string]models.FeedResult{
			"old": models.Success([]models.News{{Headline: "stale"}}),
			"new": models.Success([]models.News{{Headline: "fresh"}}),
		},
	}
	term := &gatedTerm{value: "old"}
	c := screen.New(fetcher, term, screen.Options{}, nil)
	defer c.Close()

	hold := make(chan struct{})
	reading := make(chan struct{})
	term.arm(hold, reading)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.Refresh(context.Background())
	}()
	<-reading

	term.set("new")
	go func() {
		defer wg.Done()
		c.Refresh(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)
	close(hold)
	wg.Wait()

	view := waitLoaded(t, c)
	require.Equal(t, "new", view.SearchTerm)
	require.Len(t, view.Rows, 1)
	require.Equal(t, "fresh", view.Rows[0].Headline)
}

func TestViewDuringLoad(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &stubFetcher{block: map[string]chan struct{}{"q": gate}}
	c := screen.New(fetcher, staticTerm("q"), screen.Options{}, nil)

	c.Refresh(context.Background())
	require.Equal(t, screen.StateLoading, c.View().State)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded)

	close(gate)
	require.Equal(t, screen.StateEmpty, waitLoaded(t, c).State)
	c.Close()
}

func TestCloseCancelsLoad(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &stubFetcher{block: map[string]chan struct{}{"q": gate}}
	pub := &stubPublisher{}
	c := screen.New(fetcher, staticTerm("q"), screen.Options{Publisher: pub}, nil)

	c.Refresh(context.Background())
	require.Eventually(t, func() bool { return len(fetcher.calls()) == 1 }, time.Second, 5*time.Millisecond)
	c.Close()

	view := waitLoaded(t, c)
	require.Equal(t, screen.StateLoading, view.State)
	require.Empty(t, pub.all())
	require.Empty(t, c.Refresh(context.Background()))
}

func TestOpen(t *testing.T) {
	fetcher := &stubFetcher{results: map[string]models.FeedResult{"q": models.Success(sampleNews())}}

	var opened []string
	c := screen.New(fetcher, staticTerm("q"), screen.Options{
		Opener: opener.Func(func(_ context.Context, u string) error {
			opened = append(opened, u)
			return nil
		}),
	}, nil)
	defer c.Close()

	require.ErrorIs(t, c.Open(context.Background(), 0), screen.ErrNoSuchRow)

	c.Refresh(context.Background())
	waitLoaded(t, c)

	require.NoError(t, c.Open(context.Background(), 1))
	require.Equal(t, []string{"https://x/b"}, opened)

	require.ErrorIs(t, c.Open(context.Background(), 2), screen.ErrNoURL)
	require.ErrorIs(t, c.Open(context.Background(), 3), screen.ErrNoSuchRow)
	require.ErrorIs(t, c.Open(context.Background(), -1), screen.ErrNoSuchRow)

	u, err := c.URL(0)
	require.NoError(t, err)
	require.Equal(t, "https://x/a", u)
}

func TestHasThumbnail(t *testing.T) {
	fetcher := &stubFetcher{results: map[string]models.FeedResult{"q": models.Success(sampleNews())}}
	c := screen.New(fetcher, staticTerm("q"), screen.Options{}, nil)
	defer c.Close()

	require.False(t, c.HasThumbnail("https://img/a.jpg"))

	c.Refresh(context.Background())
	waitLoaded(t, c)

	require.True(t, c.HasThumbnail("https://img/a.jpg"))
	require.False(t, c.HasThumbnail("http://10.0.0.1/admin"))
	require.False(t, c.HasThumbnail(""))
}

func TestWatchReloadsOnSearchTermChange(t *testing.T) {
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.yaml"), nil)
	require.NoError(t, err)

	fetcher := &stubFetcher{results: map[string]models.FeedResult{}}
	for _, term := range []string{settings.DefaultSearchTerm, "climate"} {
		fetcher.results[term] = models.Success([]models.News{{Headline: fmt.Sprintf("about %s", term)}})
	}

	c := screen.New(fetcher, store, screen.Options{}, nil)
	defer c.Close()
	c.Watch(store)

	c.Refresh(context.Background())
	require.Equal(t, "about DEFAULT", waitLoaded(t, c).Rows[0].Headline)

	require.NoError(t, store.SetSearchTerm("climate"))
	view := waitLoaded(t, c)
	require.Equal(t, "climate", view.SearchTerm)
	require.Equal(t, "about climate", view.Rows[0].Headline)
	require.Equal(t, []string{settings.DefaultSearchTerm, "climate"}, fetcher.calls())
}

type mutableTerm struct {
	mu    sync.Mutex
	value string
}

func (m *mutableTerm) SearchTerm() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

func (m *mutableTerm) set(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = v
}

// gatedTerm stalls the first read after arm until hold is closed.
type gatedTerm struct {
	mu      sync.Mutex
	value   string
	hold    chan struct{}
	reading chan struct{}
}

func (g *gatedTerm) arm(hold, reading chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hold, g.reading = hold, reading
}

func (g *gatedTerm) set(v string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}

func (g *gatedTerm) SearchTerm() string {
	g.mu.Lock()
	v, hold, reading := g.value, g.hold, g.reading
	g.hold, g.reading = nil, nil
	g.mu.Unlock()

	if hold != nil {
		close(reading)
		<-hold
	}
	return v
}
