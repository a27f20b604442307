package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// TransportFunc decorates a RoundTripper, for example with auth or logging
type TransportFunc func(http.RoundTripper) http.RoundTripper

type dialConfig struct {
	timeout   time.Duration
	keepAlive time.Duration
}

type poolConfig struct {
	maxIdle        int
	maxIdlePerHost int
	idleTimeout    time.Duration
}

type tlsConfig struct {
	handshakeTimeout   time.Duration
	insecureSkipVerify bool
}

type clientConfig struct {
	requestTimeout        time.Duration
	responseHeaderTimeout time.Duration
	dial                  dialConfig
	pool                  poolConfig
	tls                   tlsConfig
	middleware            []TransportFunc
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		requestTimeout:        30 * time.Second,
		responseHeaderTimeout: 10 * time.Second,
		dial:                  dialConfig{timeout: 30 * time.Second, keepAlive: 90 * time.Second},
		pool:                  poolConfig{maxIdle: 100, maxIdlePerHost: 10, idleTimeout: 90 * time.Second},
		tls:                   tlsConfig{handshakeTimeout: 10 * time.Second},
	}
}

func newClient(opts ...HttpOpts) *http.Client {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var rt http.RoundTripper = newTransport(cfg)
	for _, wrap := range cfg.middleware {
		rt = wrap(rt)
	}

	return &http.Client{
		Timeout:   cfg.requestTimeout,
		Transport: rt,
	}
}

func newTransport(cfg *clientConfig) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   cfg.dial.timeout,
		KeepAlive: cfg.dial.keepAlive,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.pool.maxIdle,
		MaxIdleConnsPerHost:   cfg.pool.maxIdlePerHost,
		IdleConnTimeout:       cfg.pool.idleTimeout,
		TLSHandshakeTimeout:   cfg.tls.handshakeTimeout,
		ResponseHeaderTimeout: cfg.responseHeaderTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.tls.insecureSkipVerify,
		},
	}
}
