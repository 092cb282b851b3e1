package presenter

import (
	"net/url"
	"time"

	"github.com/DeafMist/news-reader/internal/models"
	"github.com/DeafMist/news-reader/internal/processing"
)

const (
	// SectionLimit is the number of characters kept before the ellipsis.
	SectionLimit = 25
	// DatePlaceholder replaces the date when the record carries none.
	DatePlaceholder = "Date unknown"
	authorPrefix    = "By "
)

// Row is the view model bound to one list entry.
type Row struct {
	Index         int    `json:"index" yaml:"index"`
	ID            string `json:"id" yaml:"id"`
	Headline      string `json:"headline" yaml:"headline"`
	Summary       string `json:"summary" yaml:"summary"`
	Author        string `json:"author,omitempty" yaml:"author,omitempty"`
	ShowAuthor    bool   `json:"show_author" yaml:"show_author"`
	Section       string `json:"section" yaml:"section"`
	Date          string `json:"date" yaml:"date"`
	Time          string `json:"time,omitempty" yaml:"time,omitempty"`
	ShowDateTime  bool   `json:"show_date_time" yaml:"show_date_time"`
	URL           string `json:"url" yaml:"url"`
	ThumbnailURL  string `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
	ThumbnailPath string `json:"thumbnail_path,omitempty" yaml:"thumbnail_path,omitempty"`
	ShowThumbnail bool   `json:"show_thumbnail" yaml:"show_thumbnail"`
}

// Options selects the display locale, zone and thumbnail route.
type Options struct {
	Locale   string
	Location *time.Location
	// ThumbnailEndpoint is the path serving resized thumbnails, e.g. "/thumbnails".
	// Empty leaves Row.ThumbnailPath unset.
	ThumbnailEndpoint string
}

// Presenter turns News records into display rows.
type Presenter struct {
	format   Format
	loc      *time.Location
	endpoint string
}

// New returns a presenter. A nil Location means UTC.
func New(opts Options) *Presenter {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Presenter{
		format:   FormatFor(opts.Locale),
		loc:      loc,
		endpoint: opts.ThumbnailEndpoint,
	}
}

// Format returns the resolved locale format.
func (p *Presenter) Format() Format {
	return p.format
}

// Rows builds one row per record, keeping the input order.
func (p *Presenter) Rows(list []models.News) []Row {
	rows := make([]Row, 0, len(list))
	for i, n := range list {
		rows = append(rows, p.Row(i, n))
	}
	return rows
}

// Row builds the view model for the record at position idx.
func (p *Presenter) Row(idx int, n models.News) Row {
	row := Row{
		Index:    idx,
		ID:       processing.BuildRecordID(n.URL, n.Headline, n.PublishedAt),
		Headline: processing.CleanText(n.Headline),
		Summary:  processing.HTMLToText(n.Summary),
		Section:  SectionLabel(n.Section),
		URL:      n.URL,
	}

	if n.HasAuthor() {
		row.Author = authorPrefix + processing.CleanText(n.Author)
		row.ShowAuthor = true
	}

	if n.HasPublishedAt() {
		ts := n.PublishedAt.In(p.loc)
		row.Date = p.format.Date(ts)
		row.Time = p.format.Time(ts)
		row.ShowDateTime = true
	} else {
		row.Date = DatePlaceholder
	}

	if n.HasThumbnail() {
		row.ThumbnailURL = n.ThumbnailURL
		row.ShowThumbnail = true
		if p.endpoint != "" {
			row.ThumbnailPath = p.endpoint + "?url=" + url.QueryEscape(n.ThumbnailURL)
		}
	}

	return row
}

// SectionLabel shortens section names longer than SectionLimit characters.
func SectionLabel(section string) string {
	return processing.TruncateRunes(processing.CleanText(section), SectionLimit, processing.Ellipsis)
}
