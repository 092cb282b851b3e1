package netcheck_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/news-reader/internal/netcheck"
)

func TestNewDialerAddr(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{endpoint: "https://content.guardianapis.com/search", want: "content.guardianapis.com:443"},
		{endpoint: "http://example.com/search", want: "example.com:80"},
		{endpoint: "http://127.0.0.1:8080", want: "127.0.0.1:8080"},
	}
	for _, tt := range tests {
		d, err := netcheck.NewDialer(tt.endpoint, time.Second)
		require.NoError(t, err)
		require.Equal(t, tt.want, d.Addr())
	}

	_, err := netcheck.NewDialer("/relative", time.Second)
	require.ErrorIs(t, err, netcheck.ErrNoHost)
}

func TestDialerCheck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	d, err := netcheck.NewDialer("http://"+addr, time.Second)
	require.NoError(t, err)
	require.NoError(t, d.Check(context.Background()))

	require.NoError(t, ln.Close())
	require.Error(t, d.Check(context.Background()))
}

func TestFuncAndAlways(t *testing.T) {
	require.NoError(t, netcheck.Always.Check(context.Background()))

	called := false
	f := netcheck.Func(func(context.Context) error {
		called = true
		return context.Canceled
	})
	require.ErrorIs(t, f.Check(context.Background()), context.Canceled)
	require.True(t, called)
}
