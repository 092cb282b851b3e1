// Package settings persists user preferences in a YAML file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/DeafMist/news-reader/internal/logger"
)

const (
	KeySearchTerm     = "search_term"
	DefaultSearchTerm = "DEFAULT"
)

// ErrEmptyPath is returned by Open when no settings file path is given.
var ErrEmptyPath = errors.New("settings path is empty")

// Change describes one preference update.
type Change struct {
	Key string
	Old string
	New string
}

// Snapshot is the displayable view of the stored preferences.
type Snapshot struct {
	SearchTerm string `json:"search_term" yaml:"search_term"`
	Summary    string `json:"summary" yaml:"summary"`
	Path       string `json:"path" yaml:"path"`
}

// Store is a viper-backed preference file safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	v         *viper.Viper
	path      string
	listeners []func(Change)
	log       *slog.Logger
}

// Open loads preferences from path. A missing file yields defaults; an
// unreadable or malformed one is an error.
func Open(path string, log *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrEmptyPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault(KeySearchTerm, DefaultSearchTerm)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	return &Store{v: v, path: path, log: logger.OrDiscard(log)}, nil
}

// Path is the settings file location.
func (s *Store) Path() string {
	return s.path
}

// SearchTerm returns the stored search term, DefaultSearchTerm when unset or blank.
func (s *Store) SearchTerm() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return normalize(s.v.GetString(KeySearchTerm))
}

// Summary is the text shown under the preference title: the current value.
func (s *Store) Summary() string {
	return s.SearchTerm()
}

func (s *Store) Snapshot() Snapshot {
	term := s.SearchTerm()
	return Snapshot{SearchTerm: term, Summary: term, Path: s.path}
}

// SetSearchTerm trims value, stores it (blank resets to the default) and
// writes the file. Listeners run only when the effective value changed.
func (s *Store) SetSearchTerm(value string) error {
	value = normalize(value)

	s.mu.Lock()
	old := normalize(s.v.GetString(KeySearchTerm))
	s.v.Set(KeySearchTerm, value)

	if err := s.write(); err != nil {
		s.v.Set(KeySearchTerm, old)
		s.mu.Unlock()
		return err
	}
	listeners := append([]func(Change){}, s.listeners...)
	s.mu.Unlock()

	if old == value {
		return nil
	}

	s.log.Info("search term changed", slog.String("old", old), slog.String("new", value))
	change := Change{Key: KeySearchTerm, Old: old, New: value}
	for _, fn := range listeners {
		fn(change)
	}
	return nil
}

// OnChange registers fn to run after every effective preference change.
func (s *Store) OnChange(fn func(Change)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) write() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}

func normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultSearchTerm
	}
	return value
}
