package guardian

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DeafMist/news-reader/internal/logger"
	"github.com/DeafMist/news-reader/internal/models"
)

// PublicationLayout is the offset-less form of webPublicationDate.
const PublicationLayout = "2006-01-02T15:04:05"

// ErrMissingResponse is returned when the body has no "response" object.
var ErrMissingResponse = errors.New("response object missing")

type searchEnvelope struct {
	Response *searchResponse `json:"response"`
}

type searchResponse struct {
	Status  string         `json:"status"`
	Total   int            `json:"total"`
	Results []searchResult `json:"results"`
}

type searchResult struct {
	SectionName        string        `json:"sectionName"`
	WebTitle           string        `json:"webTitle"`
	WebURL             string        `json:"webUrl"`
	WebPublicationDate string        `json:"webPublicationDate"`
	Fields             *resultFields `json:"fields"`
}

type resultFields struct {
	TrailText string `json:"trailText"`
	Byline    string `json:"byline"`
	Thumbnail string `json:"thumbnail"`
}

// ParseSearchResponse maps response.results to News records in order.
// Null or missing values become empty strings; an unparseable date leaves
// PublishedAt nil and is logged rather than failing the page.
func ParseSearchResponse(body []byte, loc *time.Location, log *slog.Logger) ([]models.News, error) {
	log = logger.OrDiscard(log)

	var envelope searchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if envelope.Response == nil {
		return nil, ErrMissingResponse
	}

	results := envelope.Response.Results
	news := make([]models.News, 0, len(results))
	for i, r := range results {
		fields := resultFields{}
		if r.Fields != nil {
			fields = *r.Fields
		}

		publishedAt, err := ParsePublicationDate(r.WebPublicationDate, loc)
		if err != nil {
			log.Warn("skip publication date", slog.Int("index", i), slog.Any("err", err))
		}

		news = append(news, models.News{
			Headline:     r.WebTitle,
			Summary:      fields.TrailText,
			Author:       strings.TrimSpace(fields.Byline),
			Section:      r.SectionName,
			PublishedAt:  publishedAt,
			URL:          r.WebURL,
			ThumbnailURL: strings.TrimSpace(fields.Thumbnail),
		})
	}

	return news, nil
}

// ParsePublicationDate parses webPublicationDate. Values carrying a zone
// (the live API appends "Z") are read as RFC 3339; offset-less values use
// PublicationLayout in loc. The result is expressed in loc. Empty input
// yields nil without error.
func ParsePublicationDate(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		ts = ts.In(loc)
		return &ts, nil
	}

	ts, err := time.ParseInLocation(PublicationLayout, raw, loc)
	if err != nil {
		return nil, fmt.Errorf("parse publication date %q: %w", raw, err)
	}
	return &ts, nil
}
