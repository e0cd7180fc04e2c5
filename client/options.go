package client

import (
	"crypto/tls"
	"net/http"
	"time"

	"knightcam.github.io/camlink/backoff"
	"knightcam.github.io/camlink/xlog"
)

type Options struct {
	clientVersion       string
	handler             Handler
	logger              *xlog.Logger
	httpClient          *http.Client
	tlsConfig           *tls.Config
	secure              bool
	dialer              Dialer
	prechecker          Prechecker
	openTimeout         time.Duration
	handshakeTimeout    time.Duration
	precheckTimeout     time.Duration
	requestTimeout      time.Duration
	pingInterval        time.Duration
	pingTimeout         time.Duration
	heartbeatEscalation int
	retryLimit          int
	retryBackoff        backoff.Backoff
	autoReconnect       bool
}

type Option struct {
	f func(*Options)
}

func newOptions(options ...Option) *Options {
	opts := &Options{
		clientVersion:    "0.0.0",
		handler:          &emptyHandler{},
		logger:           xlog.Default(),
		openTimeout:      time.Second * 3,
		handshakeTimeout: time.Second * 3,
		precheckTimeout:  time.Second * 5,
		requestTimeout:   time.Second * 10,
		pingInterval:     time.Second,
		pingTimeout:      time.Second * 5,
		retryLimit:       20,
		retryBackoff:     backoff.Default(),
		autoReconnect:    true,
	}
	for _, o := range options {
		o.f(opts)
	}
	return opts
}

// WithClientVersion sets the semver reported to the precheck endpoint, the
// websocket dial query and the registerDevice call.
func WithClientVersion(version string) Option {
	return Option{f: func(o *Options) {
		o.clientVersion = version
	}}
}

// WithHandler sets the consumer of state changes and raw notifications.
func WithHandler(handler Handler) Option {
	return Option{f: func(o *Options) {
		o.handler = handler
	}}
}

func WithLogger(logger *xlog.Logger) Option {
	return Option{f: func(o *Options) {
		o.logger = logger
	}}
}

// WithRetry bounds the reconnection policy: at most limit attempts paced by b.
func WithRetry(limit int, b backoff.Backoff) Option {
	return Option{f: func(o *Options) {
		o.retryLimit = limit
		o.retryBackoff = b
	}}
}

// WithAutoReconnect toggles recovery after unexpected channel loss. Explicit
// Disconnect never reconnects regardless of this setting.
func WithAutoReconnect(enabled bool) Option {
	return Option{f: func(o *Options) {
		o.autoReconnect = enabled
	}}
}

// WithKeepAlive sets the heartbeat cadence: a ping every interval answered
// within timeout.
func WithKeepAlive(interval, timeout time.Duration) Option {
	return Option{f: func(o *Options) {
		o.pingInterval = interval
		o.pingTimeout = timeout
	}}
}

// WithHeartbeatEscalation forces the channel closed after n consecutive
// heartbeat failures. n <= 0 keeps heartbeat failures advisory, which is the
// default.
func WithHeartbeatEscalation(n int) Option {
	return Option{f: func(o *Options) {
		o.heartbeatEscalation = n
	}}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return Option{f: func(o *Options) {
		o.requestTimeout = timeout
	}}
}

// WithHandshakeTimeout bounds both the channel-open budget and the wait for
// the server "connected" confirmation.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return Option{f: func(o *Options) {
		o.openTimeout = timeout
		o.handshakeTimeout = timeout
	}}
}

// WithTLSConfig switches the endpoints to https/wss and uses the given TLS
// configuration for both the precheck client and the websocket dial.
func WithTLSConfig(cfg *tls.Config) Option {
	return Option{f: func(o *Options) {
		o.tlsConfig = cfg
		o.secure = true
	}}
}

// WithHTTPClient overrides the precheck HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return Option{f: func(o *Options) {
		o.httpClient = client
	}}
}

// WithDialer replaces the websocket transport factory. Used by tests to
// inject a mock channel.
func WithDialer(dialer Dialer) Option {
	return Option{f: func(o *Options) {
		o.dialer = dialer
	}}
}

// WithPrechecker replaces the HTTP precheck. Used by tests.
func WithPrechecker(p Prechecker) Option {
	return Option{f: func(o *Options) {
		o.prechecker = p
	}}
}
