// Package httpclient builds the outbound HTTP clients used for provider
// and sidecar calls.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

const defaultTimeout = 120 * time.Second

// Options configures a client.
type Options struct {
	PreferIPv4 bool          // dial tcp4 only
	Timeout    time.Duration // whole-request timeout, 120s when zero
}

// New returns an *http.Client with pooled keep-alive connections and
// bounded dial, TLS and header timeouts.
func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if opts.PreferIPv4 {
				return dialer.DialContext(ctx, "tcp4", addr)
			}
			return dialer.DialContext(ctx, network, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
