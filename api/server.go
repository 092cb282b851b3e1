package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeafMist/news-reader/internal/screen"
	"github.com/DeafMist/news-reader/internal/settings"
	"github.com/DeafMist/news-reader/internal/thumbnail"
)

type newsScreen interface {
	View() screen.View
	Refresh(ctx context.Context) string
	URL(index int) (string, error)
	HasThumbnail(rawURL string) bool
}

type thumbnailLoader interface {
	Load(ctx context.Context, rawURL string) (*thumbnail.Image, error)
}

type preferences interface {
	Snapshot() settings.Snapshot
	SetSearchTerm(value string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type server struct {
	log      *slog.Logger
	screen   newsScreen
	thumbs   thumbnailLoader
	prefs    preferences
	upstream pinger
	metrics  http.Handler
}

type errorResponse struct {
	Error string `json:"error"`
}

type searchTermRequest struct {
	Value string `json:"value"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/news", s.handleNews)
	r.Post("/news/refresh", s.handleRefresh)
	r.Get("/news/{index}/open", s.handleOpen)
	r.Get("/thumbnails", s.handleThumbnail)
	r.Get("/settings", s.handleSettings)
	r.Put("/settings/search-term", s.handleSetSearchTerm)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.upstream.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleNews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.screen.View())
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id := s.screen.Refresh(r.Context())
	if id == "" {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "screen is closed"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"load_id": id})
}

func (s *server) handleOpen(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "index must be an integer"})
		return
	}

	target, err := s.screen.URL(index)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, screen.ErrNoSuchRow) || errors.Is(err, screen.ErrNoURL) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (s *server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: thumbnail.ErrInvalidURL.Error()})
		return
	}
	// Only thumbnails of the rows on screen are proxied.
	if !s.screen.HasThumbnail(rawURL) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown thumbnail"})
		return
	}

	img, err := s.thumbs.Load(ctx, rawURL)
	if err != nil {
		s.log.Warn("serve thumbnail", slog.String("url", rawURL), slog.Any("err", err))
		if errors.Is(err, thumbnail.ErrInvalidURL) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: thumbnail.ErrInvalidURL.Error()})
			return
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "thumbnail unavailable"})
		return
	}

	etag := `"` + img.ETag + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Data); err != nil {
		s.log.Debug("write thumbnail", slog.Any("err", err))
	}
}

func (s *server) handleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.prefs.Snapshot())
}

func (s *server) handleSetSearchTerm(w http.ResponseWriter, r *http.Request) {
	var req searchTermRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.prefs.SetSearchTerm(req.Value); err != nil {
		s.log.Error("save search term", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, s.prefs.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
