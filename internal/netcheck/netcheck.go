// Package netcheck answers whether the content API host is reachable
// before a load is started.
package netcheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// ErrNoHost is returned when the endpoint URL carries no host.
var ErrNoHost = errors.New("endpoint has no host")

// Checker reports connectivity. A nil error means online.
type Checker interface {
	Check(ctx context.Context) error
}

// Func adapts a function to Checker.
type Func func(ctx context.Context) error

func (f Func) Check(ctx context.Context) error { return f(ctx) }

// Always is a Checker that always reports online.
var Always = Func(func(context.Context) error { return nil })

// Dialer opens and closes a TCP connection to the endpoint host.
type Dialer struct {
	addr    string
	timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewDialer derives host:port from endpoint, defaulting the port from the scheme.
func NewDialer(endpoint string, timeout time.Duration) (*Dialer, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Hostname() == "" {
		return nil, ErrNoHost
	}

	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	d := &net.Dialer{Timeout: timeout}
	return &Dialer{
		addr:    net.JoinHostPort(u.Hostname(), port),
		timeout: timeout,
		dial:    d.DialContext,
	}, nil
}

func (d *Dialer) Addr() string {
	return d.addr
}

// Check dials Addr once and closes the connection.
func (d *Dialer) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	conn, err := d.dial(ctx, "tcp", d.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", d.addr, err)
	}
	return conn.Close()
}
