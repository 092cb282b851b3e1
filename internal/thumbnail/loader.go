package thumbnail

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/DeafMist/news-reader/internal/logger"
)

const (
	defaultMaxWidth    = 320
	defaultConcurrency = 4
	defaultTimeout     = 15 * time.Second
	defaultMaxBytes    = 5 << 20
	jpegQuality        = 80

	// MaxPixels bounds width*height of a source image before it is decoded.
	MaxPixels = 40_000_000
)

var (
	// ErrInvalidURL is returned for empty or non-http(s) thumbnail URLs.
	ErrInvalidURL = errors.New("invalid thumbnail url")
	// ErrUpstreamStatus is returned when the image host answers with a non-200 status.
	ErrUpstreamStatus = errors.New("unexpected upstream status")
	// ErrImageTooLarge is returned when the declared dimensions exceed MaxPixels.
	ErrImageTooLarge = errors.New("image dimensions too large")
)

// Image is a downscaled, JPEG re-encoded thumbnail.
type Image struct {
	URL         string
	Data        []byte
	ContentType string
	Width       int
	Height      int
	ETag        string
	FetchedAt   time.Time
}

// Result is one outcome delivered by Prefetch.
type Result struct {
	URL   string
	Image *Image
	Err   error
}

// Recorder observes load outcomes ("hit", "miss", "error").
type Recorder interface {
	ThumbnailOutcome(outcome string)
}

// Options tunes a Loader. Zero values fall back to package defaults.
type Options struct {
	MaxWidth    int
	Concurrency int
	Timeout     time.Duration
	MaxBytes    int64
}

// Loader downloads, resizes and caches thumbnails.
type Loader struct {
	http     *http.Client
	cache    *Cache
	group    singleflight.Group
	sem      *semaphore.Weighted
	opts     Options
	recorder Recorder
	log      *slog.Logger
}

// NewLoader returns a loader backed by cache, or by a fresh one when cache is nil.
func NewLoader(cache *Cache, opts Options, log *slog.Logger) *Loader {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = defaultMaxWidth
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if cache == nil {
		cache = NewCache(256, time.Hour)
	}

	return &Loader{
		http:  &http.Client{Timeout: opts.Timeout},
		cache: cache,
		sem:   semaphore.NewWeighted(int64(opts.Concurrency)),
		opts:  opts,
		log:   logger.OrDiscard(log),
	}
}

// WithRecorder attaches an outcome recorder and returns the loader.
func (l *Loader) WithRecorder(r Recorder) *Loader {
	l.recorder = r
	return l
}

// Load returns the thumbnail for rawURL from cache or downloads it.
// Concurrent calls for the same URL share a single download; a caller whose
// ctx ends stops waiting while the download still fills the cache.
func (l *Loader) Load(ctx context.Context, rawURL string) (*Image, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if img, ok := l.cache.Get(rawURL); ok {
		l.record("hit")
		return img, nil
	}

	ch := l.group.DoChan(rawURL, func() (any, error) {
		if img, ok := l.cache.Get(rawURL); ok {
			return img, nil
		}
		// The shared download outlives any single caller.
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.opts.Timeout)
		defer cancel()
		img, err := l.download(dctx, rawURL)
		if err != nil {
			return nil, err
		}
		l.cache.Put(rawURL, img)
		return img, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			l.record("error")
			l.log.Warn("thumbnail load failed", slog.String("url", rawURL), slog.Any("err", res.Err))
			return nil, res.Err
		}
		l.record("miss")
		return res.Val.(*Image), nil
	}
}

// Prefetch loads every distinct non-empty URL in the background. Each URL
// yields exactly one Result; the channel is closed once all loads finish.
// Cancelling ctx stops loads that have not started yet.
func (l *Loader) Prefetch(ctx context.Context, urls []string) <-chan Result {
	seen := make(map[string]struct{}, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}

	out := make(chan Result, len(unique))
	var wg sync.WaitGroup
	for _, u := range unique {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				out <- Result{URL: u, Err: err}
				return
			}
			img, err := l.Load(ctx, u)
			out <- Result{URL: u, Image: img, Err: err}
		}(u)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (l *Loader) download(ctx context.Context, rawURL string) (*Image, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build thumbnail request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read thumbnail: %w", err)
	}
	if int64(len(data)) > l.opts.MaxBytes {
		return nil, fmt.Errorf("thumbnail exceeds %d bytes", l.opts.MaxBytes)
	}

	img, err := process(data, l.opts.MaxWidth)
	if err != nil {
		return nil, err
	}
	img.URL = rawURL
	img.FetchedAt = time.Now().UTC()
	return img, nil
}

// process decodes data, downscales it to maxWidth keeping the aspect ratio
// and re-encodes it as JPEG. Images are never upscaled.
func process(data []byte, maxWidth int) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	resized := src
	if width > maxWidth {
		height = height * maxWidth / width
		if height < 1 {
			height = 1
		}
		width = maxWidth
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		resized = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	encoded := buf.Bytes()
	sum := sha256.Sum256(encoded)
	return &Image{
		Data:        encoded,
		ContentType: "image/jpeg",
		Width:       width,
		Height:      height,
		ETag:        hex.EncodeToString(sum[:16]),
	}, nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return ErrInvalidURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}

func (l *Loader) record(outcome string) {
	if l.recorder != nil {
		l.recorder.ThumbnailOutcome(outcome)
	}
}
