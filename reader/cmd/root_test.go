package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/DeafMist/news-reader/internal/screen"
	"github.com/DeafMist/news-reader/internal/settings"
)

const twoResults = `{"response":{"status":"ok","results":[
	{"sectionName":"World","webTitle":"Headline A","webUrl":"https://x/a","webPublicationDate":"2018-07-03T10:15:00","fields":{"trailText":"Summary A"}},
	{"sectionName":"Football","webTitle":"Headline B","webUrl":"https://x/b","fields":{"trailText":"Summary B","byline":"Jane Doe"}}
]}}`

type recordingBrowser struct {
	mu     sync.Mutex
	opened []string
}

func (b *recordingBrowser) Open(_ context.Context, u string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = append(b.opened, u)
	return nil
}

type contentAPI struct {
	*httptest.Server
	mu    sync.Mutex
	terms []string
}

func newContentAPI(t *testing.T, status int, body string) *contentAPI {
	t.Helper()
	api := &contentAPI{}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.terms = append(api.terms, r.URL.Query().Get("q"))
		api.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(api.Close)
	return api
}

func (a *contentAPI) seen() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.terms...)
}

func setupReaderTest(t *testing.T, api *contentAPI) *recordingBrowser {
	t.Helper()
	t.Setenv("GUARDIAN_ENDPOINT", api.URL+"/search")
	t.Setenv("SETTINGS_PATH", filepath.Join(t.TempDir(), "settings.yaml"))
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("DISPLAY_LOCALE", "en-US")
	t.Setenv("DISPLAY_TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")

	for _, c := range []*cobra.Command{listCmd, settingsShowCmd} {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	verbose = false
	noColor = true

	rec := &recordingBrowser{}
	prev := browser
	browser = rec
	t.Cleanup(func() { browser = prev })
	return rec
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestListTable(t *testing.T) {
	api := newContentAPI(t, http.StatusOK, twoResults)
	setupReaderTest(t, api)

	out, err := run(t, "list", "--no-color")
	require.NoError(t, err)
	require.Contains(t, out, "News for DEFAULT")
	require.Contains(t, out, "Headline A")
	require.Contains(t, out, "Jul 3, 2018 10:15 AM")
	require.Contains(t, out, "By Jane Doe")
	require.Contains(t, out, "Date unknown")
	require.Equal(t, []string{"DEFAULT"}, api.seen())
}

func TestListJSON(t *testing.T) {
	setupReaderTest(t, newContentAPI(t, http.StatusOK, twoResults))

	out, err := run(t, "list", "--json")
	require.NoError(t, err)

	var view screen.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Equal(t, screen.StateReady, view.State)
	require.Len(t, view.Rows, 2)
	require.Equal(t, "World", view.Rows[0].Section)
	require.False(t, view.Rows[0].ShowAuthor)
	require.True(t, view.Rows[1].ShowAuthor)
}

func TestListYAML(t *testing.T) {
	setupReaderTest(t, newContentAPI(t, http.StatusOK, twoResults))

	out, err := run(t, "list", "--yaml")
	require.NoError(t, err)

	var view screen.View
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	require.Len(t, view.Rows, 2)
	require.Equal(t, "Headline B", view.Rows[1].Headline)
	require.Equal(t, "By Jane Doe", view.Rows[1].Author)
}

func TestListFlagsAreExclusive(t *testing.T) {
	setupReaderTest(t, newContentAPI(t, http.StatusOK, twoResults))

	_, err := run(t, "list", "--json", "--yaml")
	require.Error(t, err)
}

func TestListEmpty(t *testing.T) {
	setupReaderTest(t, newContentAPI(t, http.StatusOK, `{"response":{"results":[]}}`))

	out, err := run(t, "list")
	require.NoError(t, err)
	require.Contains(t, out, screen.MessageNoNews)
}

func TestListServerError(t *testing.T) {
	setupReaderTest(t, newContentAPI(t, http.StatusServiceUnavailable, `{}`))

	_, err := run(t, "list")
	require.EqualError(t, err, "Server responded with status 503.")
}

func TestListMalformedResponse(t *testing.T) {
	setupReaderTest(t, newContentAPI(t, http.StatusOK, `{"response":`))

	_, err := run(t, "list")
	require.EqualError(t, err, screen.MessageParseError)
}

func TestOpen(t *testing.T) {
	rec := setupReaderTest(t, newContentAPI(t, http.StatusOK, twoResults))

	out, err := run(t, "open", "1")
	require.NoError(t, err)
	require.Contains(t, out, "Opened https://x/b")
	require.Equal(t, []string{"https://x/b"}, rec.opened)

	_, err = run(t, "open", "7")
	require.ErrorIs(t, err, screen.ErrNoSuchRow)

	_, err = run(t, "open", "first")
	require.Error(t, err)
	require.Len(t, rec.opened, 1)
}

func TestSettingsRoundTrip(t *testing.T) {
	api := newContentAPI(t, http.StatusOK, twoResults)
	setupReaderTest(t, api)

	out, err := run(t, "settings", "show")
	require.NoError(t, err)
	require.Contains(t, out, settings.DefaultSearchTerm)

	out, err = run(t, "settings", "set-search-term", "  climate ")
	require.NoError(t, err)
	require.Contains(t, out, `"climate"`)

	out, err = run(t, "settings", "show", "--json")
	require.NoError(t, err)
	var snap settings.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.Equal(t, "climate", snap.SearchTerm)
	require.Equal(t, "climate", snap.Summary)

	_, err = run(t, "list")
	require.NoError(t, err)
	require.Equal(t, []string{"climate"}, api.seen())
}

func TestVersion(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	out, err := run(t, "version")
	require.NoError(t, err)
	require.Equal(t, "reader 1.2.3\n", out)
}
