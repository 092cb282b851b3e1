package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedEvent describes one completed feed load. It is published to the
// events topic and never carries the articles themselves.
type FeedEvent struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	SearchTerm string    `json:"search_term"`
	Outcome    string    `json:"outcome"`
	Count      int       `json:"count"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// NewFeedEvent summarizes a result for the given search term.
func NewFeedEvent(source, term string, res FeedResult, took time.Duration, at time.Time) FeedEvent {
	ev := FeedEvent{
		ID:         uuid.NewString(),
		Source:     source,
		SearchTerm: term,
		Outcome:    res.Kind.String(),
		Count:      res.Len(),
		StatusCode: res.StatusCode,
		DurationMS: took.Milliseconds(),
		At:         at.UTC(),
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	return ev
}
