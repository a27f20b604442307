package http

import "time"

// HttpOpts tunes the client built by NewConnector
type HttpOpts func(*clientConfig)

// WithRequestTimeout bounds a whole exchange, including reading the response body
func WithRequestTimeout(timeout time.Duration) HttpOpts {
	return func(c *clientConfig) {
		c.requestTimeout = timeout
	}
}

func WithConnClientTimeout(timeout time.Duration) HttpOpts {
	return func(c *clientConfig) {
		c.dial.timeout = timeout
	}
}

func WithClientKeepAlive(keepAlive time.Duration) HttpOpts {
	return func(c *clientConfig) {
		c.dial.keepAlive = keepAlive
	}
}

func WithResponseHeaderTimeout(timeout time.Duration) HttpOpts {
	return func(c *clientConfig) {
		c.responseHeaderTimeout = timeout
	}
}

// WithConnPool sizes the idle connection pool. Non-positive values keep the defaults.
func WithConnPool(maxIdle, maxIdlePerHost int, idleTimeout time.Duration) HttpOpts {
	return func(c *clientConfig) {
		if maxIdle > 0 {
			c.pool.maxIdle = maxIdle
		}
		if maxIdlePerHost > 0 {
			c.pool.maxIdlePerHost = maxIdlePerHost
		}
		if idleTimeout > 0 {
			c.pool.idleTimeout = idleTimeout
		}
	}
}

// WithTLS sets the handshake timeout and whether server certificates are verified.
// Skipping verification is meant for self-signed development clusters only.
func WithTLS(handshakeTimeout time.Duration, insecureSkipVerify bool) HttpOpts {
	return func(c *clientConfig) {
		if handshakeTimeout > 0 {
			c.tls.handshakeTimeout = handshakeTimeout
		}
		c.tls.insecureSkipVerify = insecureSkipVerify
	}
}

// WithTransport adds a RoundTripper decorator. Decorators wrap in the order given,
// so the last one added sees the request first.
func WithTransport(transport TransportFunc) HttpOpts {
	return func(c *clientConfig) {
		c.middleware = append(c.middleware, transport)
	}
}
