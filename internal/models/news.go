package models

import "time"

// News is one article as returned by the content API search endpoint.
// Empty strings mean the value was absent or null upstream.
type News struct {
	Headline     string     `json:"headline"`
	Summary      string     `json:"summary"`
	Author       string     `json:"author"`
	Section      string     `json:"section"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	URL          string     `json:"url"`
	ThumbnailURL string     `json:"thumbnail_url"`
}

// HasAuthor reports whether the article carries a byline.
func (n News) HasAuthor() bool {
	return n.Author != ""
}

// HasThumbnail reports whether the article carries a thumbnail URL.
func (n News) HasThumbnail() bool {
	return n.ThumbnailURL != ""
}

// HasPublishedAt reports whether the publication date was present and parseable.
func (n News) HasPublishedAt() bool {
	return n.PublishedAt != nil
}
