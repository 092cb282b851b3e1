// Package opener hands article URLs to the operating system's browser.
package opener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// ErrUnsupportedURL is returned for URLs that are not absolute http(s) links.
var ErrUnsupportedURL = errors.New("unsupported url")

// Opener navigates to an external URL.
type Opener interface {
	Open(ctx context.Context, rawURL string) error
}

// Func adapts a function to Opener.
type Func func(ctx context.Context, rawURL string) error

func (f Func) Open(ctx context.Context, rawURL string) error { return f(ctx, rawURL) }

// Browser launches the platform URL handler.
type Browser struct {
	goos string
	run  func(ctx context.Context, name string, args ...string) error
}

// NewBrowser opens URLs with the launcher of the running OS.
func NewBrowser() *Browser {
	return &Browser{goos: runtime.GOOS, run: startCommand}
}

func (b *Browser) Open(ctx context.Context, rawURL string) error {
	if err := Validate(rawURL); err != nil {
		return err
	}
	name, args := Command(b.goos, rawURL)
	if err := b.run(ctx, name, args...); err != nil {
		return fmt.Errorf("open %s: %w", rawURL, err)
	}
	return nil
}

// Command returns the launcher for goos.
func Command(goos, rawURL string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{rawURL}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}
	default:
		return "xdg-open", []string{rawURL}
	}
}

// Validate accepts absolute http and https URLs only.
func Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}
	return nil
}

func startCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
