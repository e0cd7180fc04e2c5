package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"knightcam.github.io/camlink/envelope"
	"knightcam.github.io/camlink/internal/correlate"
	"knightcam.github.io/camlink/internal/keepalive"
	"knightcam.github.io/camlink/internal/queue"
	"knightcam.github.io/camlink/xerr"
	"knightcam.github.io/camlink/xlog"
)

// Client is a single-server, single-connection control channel to a remote
// camera device. The public API is not safe for concurrent calls from
// multiple goroutines; the design assumes one caller task.
type Client interface {
	// Session returns the id correlating this client's log records.
	Session() string
	State() State
	// LastError returns the most recent connection error, cleared by the
	// next successful connect.
	LastError() *xerr.Error
	// ServerInfo returns the handshake data of the current connection.
	ServerInfo() *ServerInfo
	Stats() Stats
	// Connect runs precheck, opens the channel and waits for the server
	// confirmation. Idempotent when already connected.
	Connect(ctx context.Context) *xerr.Error
	// RegisterDevice announces the device model. On success the model is
	// re-sent transparently after every reconnect.
	RegisterDevice(ctx context.Context, model string) *xerr.Error
	// SendRequest issues an action and waits for the correlated response.
	// A non-nil *xerr.Error covers transport-level failure; a response with
	// Success=false reports an application-level one. Callers must check
	// both.
	SendRequest(ctx context.Context, action string, params map[string]any) (*envelope.Response, *xerr.Error)
	// Disconnect tears the session down without reconnecting.
	Disconnect()
	// Close disconnects and additionally cancels any in-progress
	// reconnection loop. The client is unusable afterwards.
	Close()
}

type client struct {
	opts      *Options
	session   string
	logger    *xlog.Logger
	handler   Handler
	dial      Dialer
	precheck  Prechecker
	pending   *correlate.Table
	heartbeat *keepalive.Monitor
	retrier   *Retrier
	sendq     *queue.Queue
	eventq    *queue.Queue
	meters    *meters

	// mu guards every field below it.
	mu           sync.Mutex
	state        State
	lastErr      *xerr.Error
	conn         Conn
	gen          uint64
	serverInfo   *ServerInfo
	deviceModel  string
	forced       bool
	reconnecting bool
	closed       bool
}

// New creates a client for the camera server at addr (host:port). The
// precheck endpoint and websocket endpoint are derived from addr unless
// overridden through options.
func New(addr string, options ...Option) Client {
	opts := newOptions(options...)
	session := uuid.NewString()
	c := &client{
		opts:    opts,
		session: session,
		logger:  opts.logger.With(xlog.Sid(session)),
		handler: opts.handler,
		pending: correlate.New(),
		retrier: NewRetrier(opts.retryLimit, opts.retryBackoff),
		sendq:   queue.New(64),
		eventq:  queue.New(64),
		meters:  newMeters(),
		state:   StateDisconnected,
	}
	c.dial = opts.dialer
	if c.dial == nil {
		wsURL := fmt.Sprintf("%s://%s/ws?clientVersion=%s", wsScheme(opts.secure), addr, opts.clientVersion)
		c.dial = func() Conn {
			return newWSConn(wsURL, opts.tlsConfig)
		}
	}
	c.precheck = opts.prechecker
	if c.precheck == nil {
		httpClient := opts.httpClient
		if httpClient == nil {
			if opts.secure {
				httpClient = NewHTTP2Client(opts.tlsConfig)
			} else {
				httpClient = &http.Client{}
			}
		}
		base := fmt.Sprintf("%s://%s", httpScheme(opts.secure), addr)
		c.precheck = newHTTPPrecheck(base, opts.clientVersion, httpClient, opts.precheckTimeout)
	}
	c.heartbeat = keepalive.New(opts.pingInterval, opts.pingTimeout)
	c.heartbeat.PingFunc(func(timeout time.Duration) error {
		resp, xe := c.sendRequest(context.Background(), envelope.ActionPing, nil, timeout)
		if xe != nil {
			return xe
		}
		if !resp.Success {
			return xerr.Newf(xerr.CodeServerError, "ping rejected: %s", resp.Error)
		}
		return nil
	})
	c.heartbeat.FailFunc(func(err error) {
		c.meters.hbFailures.Inc()
		c.logger.Warn("heartbeat failed", xlog.Err(err))
	})
	if opts.heartbeatEscalation > 0 {
		c.heartbeat.EscalateAfter(opts.heartbeatEscalation, func(failures int) {
			c.logger.Error("heartbeat failures escalated, closing channel", xlog.Int("failures", failures))
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn != nil {
				conn.Close()
			}
		})
	}
	return c
}

func (c *client) Session() string {
	return c.session
}

func (c *client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *client) LastError() *xerr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *client) ServerInfo() *ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

func (c *client) Stats() Stats {
	return c.meters.snapshot()
}

func (c *client) Connect(ctx context.Context) *xerr.Error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return xerr.New(xerr.CodeUnknown, "client is closed")
	}
	switch c.state {
	case StateConnected, StateRegistered:
		c.mu.Unlock()
		return nil
	case StateConnecting, StateReconnecting, StateDisconnecting:
		state := c.state
		c.mu.Unlock()
		return xerr.Newf(xerr.CodeUnknown, "connect already in progress (%s)", state)
	}
	c.setState(StateConnecting, nil)
	c.mu.Unlock()

	conn, info, xe := c.establish(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if xe != nil {
		c.lastErr = xe
		c.setState(StateDisconnected, xe)
		return xe
	}
	if c.closed {
		conn.Close()
		xe := xerr.New(xerr.CodeUnknown, "client is closed")
		c.setState(StateDisconnected, xe)
		return xe
	}
	c.attach(conn, info)
	return nil
}

// establish runs the full Connecting sequence once: precheck, transport
// open within the open budget, then the wait for the server "connected"
// confirmation within the handshake window.
func (c *client) establish(ctx context.Context) (Conn, *ServerInfo, *xerr.Error) {
	if xe := c.precheck.Check(ctx); xe != nil {
		return nil, nil, xe
	}
	conn := c.dial()
	openCtx, cancel := context.WithTimeout(ctx, c.opts.openTimeout)
	defer cancel()
	if err := conn.Open(openCtx); err != nil {
		if openCtx.Err() != nil {
			return nil, nil, xerr.Wrap(xerr.CodeTimeout, "channel open timed out", err)
		}
		return nil, nil, xerr.Wrap(xerr.CodeConnectionRefused, "channel open failed", err)
	}
	info, xe := c.awaitHandshake(ctx, conn)
	if xe != nil {
		conn.Close()
		return nil, nil, xe
	}
	return conn, info, nil
}

// awaitHandshake consumes frames until the server confirms or rejects the
// connection. A confirmation arriving after the window has elapsed is lost
// with the closed channel, so a stale handshake can never resurface.
func (c *client) awaitHandshake(ctx context.Context, conn Conn) (*ServerInfo, *xerr.Error) {
	type outcome struct {
		info *ServerInfo
		err  *xerr.Error
	}
	done := make(chan outcome, 1)
	go func() {
		for {
			data, err := conn.Recv()
			if err != nil {
				done <- outcome{nil, xerr.Wrap(xerr.CodeConnectionRefused, "channel closed during handshake", err)}
				return
			}
			frame, derr := envelope.Unmarshal(data)
			if derr != nil {
				c.logger.Warn("bad frame during handshake", xlog.Err(derr))
				continue
			}
			n, ok := frame.(*envelope.Notification)
			if !ok {
				continue
			}
			switch n.Event {
			case envelope.EventConnected:
				cd, err := n.ConnectedData()
				if err != nil {
					done <- outcome{nil, xerr.Wrap(xerr.CodeUnknown, "bad handshake payload", err)}
					return
				}
				done <- outcome{&ServerInfo{ServerVersion: cd.ServerVersion, PreviewSize: cd.PreviewSize}, nil}
				return
			case envelope.EventConnectionRejected, envelope.EventVersionIncompatible:
				done <- outcome{nil, c.rejectionError(n)}
				return
			default:
				continue
			}
		}
	}()
	select {
	case o := <-done:
		return o.info, o.err
	case <-time.After(c.opts.handshakeTimeout):
		return nil, xerr.New(xerr.CodeTimeout, "no server confirmation within handshake window")
	case <-ctx.Done():
		return nil, xerr.Wrap(xerr.CodeUnknown, "connect canceled", context.Cause(ctx))
	}
}

func (c *client) rejectionError(n *envelope.Notification) *xerr.Error {
	d := n.RejectedData()
	code := xerr.CodeConnectionRejected
	if n.Event == envelope.EventVersionIncompatible {
		code = xerr.CodeVersionIncompatible
	}
	message := d.Message
	if message == "" {
		message = "server rejected connection"
	}
	return &xerr.Error{
		Code:               code,
		Message:            message,
		ClientVersion:      c.opts.clientVersion,
		ServerVersion:      d.ServerVersion,
		MinRequiredVersion: d.MinRequiredVersion,
	}
}

// attach makes conn the live channel. Caller holds the lock.
func (c *client) attach(conn Conn, info *ServerInfo) {
	c.gen++
	c.conn = conn
	c.serverInfo = info
	c.lastErr = nil
	c.forced = false
	c.setState(StateConnected, nil)
	c.heartbeat.Start()
	go c.readLoop(conn, c.gen)
}

// readLoop is the single consumer of the inbound stream and the only writer
// of state transitions triggered by network events.
func (c *client) readLoop(conn Conn, gen uint64) {
	for {
		data, err := conn.Recv()
		if err != nil {
			c.connClosed(conn, gen, err)
			return
		}
		c.meters.framesIn.Mark(1)
		frame, derr := envelope.Unmarshal(data)
		if derr != nil {
			c.logger.Warn("bad inbound frame", xlog.Err(derr))
			continue
		}
		switch f := frame.(type) {
		case *envelope.Response:
			if !c.pending.Resolve(f.ID, f) {
				c.logger.Debug("response without pending request", xlog.Str("id", f.ID))
			}
		case *envelope.Notification:
			c.handleNotification(f)
		case *envelope.Request:
			c.logger.Warn("unexpected request frame from server", xlog.Action(f.Action))
		}
	}
}

func (c *client) handleNotification(n *envelope.Notification) {
	switch n.Event {
	case envelope.EventConnectionRejected, envelope.EventVersionIncompatible:
		// Forced disconnect: record the error, close the channel and let
		// the closed signal drive the terminal transition.
		xe := c.rejectionError(n)
		c.logger.Error("server revoked connection", xlog.Event(n.Event), xlog.Err(xe))
		c.mu.Lock()
		c.lastErr = xe
		c.forced = true
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
	case envelope.EventConnected:
		c.logger.Debug("duplicate handshake confirmation ignored")
	default:
		change := n
		if err := c.eventq.Push(func() { c.handler.OnNotification(change) }); err != nil {
			c.logger.Warn("notification dropped", xlog.Event(n.Event), xlog.Err(err))
		}
	}
}

// connClosed handles the channel's closed signal. Stale loops belonging to a
// replaced or deliberately closed connection are ignored by generation.
func (c *client) connClosed(conn Conn, gen uint64, cause error) {
	c.mu.Lock()
	if gen != c.gen || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.heartbeat.Stop()
	c.conn = nil
	c.pending.FailAll(xerr.Wrap(xerr.CodeUnknown, "connection lost", cause))

	if c.lastErr.AuthClass() || c.forced || !c.opts.autoReconnect || c.reconnecting || c.closed {
		xe := c.lastErr
		if xe == nil {
			xe = xerr.Wrap(xerr.CodeUnknown, "connection closed unexpectedly", cause)
			c.lastErr = xe
		}
		c.setState(StateDisconnected, xe)
		c.mu.Unlock()
		return
	}
	xe := xerr.Wrap(xerr.CodeUnknown, "connection closed unexpectedly", cause)
	c.lastErr = xe
	c.reconnecting = true
	wasRegistered := c.state == StateRegistered
	model := c.deviceModel
	c.setState(StateReconnecting, xe)
	c.mu.Unlock()
	go c.runReconnect(wasRegistered, model)
}

// runReconnect drives the bounded-attempt recovery loop and, when a device
// was registered before the loss, re-registers it before reporting success.
func (c *client) runReconnect(wasRegistered bool, model string) {
	xe := c.retrier.Run(func(attempt int) *xerr.Error {
		c.mu.Lock()
		if c.closed || c.state != StateReconnecting {
			c.mu.Unlock()
			return xerr.New(xerr.CodeUnknown, "reconnect canceled")
		}
		c.mu.Unlock()
		c.meters.reconnects.Inc()
		c.emit(StateChange{Old: StateReconnecting, New: StateReconnecting, Attempt: attempt})
		c.logger.Info("reconnect attempt", xlog.Attempt(attempt))

		conn, info, aerr := c.establish(context.Background())
		if aerr != nil {
			c.logger.Warn("reconnect attempt failed", xlog.Attempt(attempt), xlog.Err(aerr))
			return aerr
		}
		c.mu.Lock()
		if c.closed || c.state != StateReconnecting {
			c.mu.Unlock()
			conn.Close()
			return xerr.New(xerr.CodeUnknown, "reconnect canceled")
		}
		c.reconnecting = false
		c.attach(conn, info)
		c.mu.Unlock()
		return nil
	})
	if xe != nil {
		c.mu.Lock()
		c.reconnecting = false
		if c.state == StateReconnecting {
			c.lastErr = xe
			c.setState(StateDisconnected, xe)
		}
		c.mu.Unlock()
		return
	}
	if wasRegistered && model != "" {
		if rerr := c.RegisterDevice(context.Background(), model); rerr != nil {
			c.logger.Warn("re-registration failed", xlog.Str("deviceModel", model), xlog.Err(rerr))
		}
	}
}

func (c *client) RegisterDevice(ctx context.Context, model string) *xerr.Error {
	if model == "" {
		return xerr.New(xerr.CodeUnknown, "device model must not be empty")
	}
	resp, xe := c.sendRequest(ctx, envelope.ActionRegisterDevice, map[string]any{
		"deviceModel":   model,
		"clientVersion": c.opts.clientVersion,
	}, c.opts.requestTimeout)
	if xe != nil {
		return xe
	}
	if !resp.Success {
		return xerr.Newf(xerr.CodeServerError, "register device rejected: %s", resp.Error)
	}
	c.mu.Lock()
	c.deviceModel = model
	if c.state == StateConnected {
		c.setState(StateRegistered, nil)
	}
	c.mu.Unlock()
	return nil
}

func (c *client) SendRequest(ctx context.Context, action string, params map[string]any) (*envelope.Response, *xerr.Error) {
	return c.sendRequest(ctx, action, params, c.opts.requestTimeout)
}

func (c *client) sendRequest(ctx context.Context, action string, params map[string]any, timeout time.Duration) (*envelope.Response, *xerr.Error) {
	if action == "" {
		return nil, xerr.New(xerr.CodeUnknown, "action must not be empty")
	}
	c.mu.Lock()
	if !c.state.live() {
		state := c.state
		c.mu.Unlock()
		return nil, xerr.Newf(xerr.CodeUnknown, "not connected (%s)", state)
	}
	conn := c.conn
	c.mu.Unlock()

	id := c.pending.NextID()
	ch := c.pending.Register(id)
	data, err := envelope.Marshal(envelope.NewRequest(id, action, params))
	if err != nil {
		c.pending.Remove(id)
		return nil, xerr.Wrap(xerr.CodeUnknown, "encode request", err)
	}
	if err := c.write(conn, data); err != nil {
		c.pending.Remove(id)
		return nil, xerr.Wrap(xerr.CodeUnknown, "send request", err)
	}
	// The channel may have been torn down between the liveness check and
	// the write landing, leaving an entry FailAll never saw. Fail it now so
	// the caller never waits out the timeout on a dead channel.
	c.mu.Lock()
	stale := c.conn != conn
	c.mu.Unlock()
	if stale {
		c.pending.Fail(id, xerr.New(xerr.CodeUnknown, "connection lost"))
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if res.IsErr() {
			return nil, xerr.From(res.Error())
		}
		return res.Value(), nil
	case <-timer.C:
		c.pending.Remove(id)
		return nil, xerr.Newf(xerr.CodeTimeout, "no response for %q within %s", action, timeout)
	case <-ctx.Done():
		c.pending.Remove(id)
		return nil, xerr.Wrap(xerr.CodeUnknown, "request canceled", context.Cause(ctx))
	}
}

// write serializes all socket writes through the send queue.
func (c *client) write(conn Conn, data []byte) error {
	errCh := make(chan error, 1)
	if err := c.sendq.Push(func() { errCh <- conn.Send(data) }); err != nil {
		return err
	}
	if err := <-errCh; err != nil {
		return err
	}
	c.meters.framesOut.Mark(1)
	return nil
}

func (c *client) Disconnect() {
	c.mu.Lock()
	if !c.state.live() {
		c.mu.Unlock()
		return
	}
	c.setState(StateDisconnecting, nil)
	c.heartbeat.Stop()
	conn := c.conn
	c.conn = nil
	c.gen++
	c.pending.FailAll(xerr.New(xerr.CodeUnknown, "connection closed"))
	c.lastErr = nil
	c.setState(StateDisconnected, nil)
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (c *client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.retrier.Cancel()
	c.Disconnect()
	c.mu.Lock()
	if c.state == StateReconnecting {
		c.setState(StateDisconnected, c.lastErr)
	}
	c.mu.Unlock()
	c.heartbeat.Stop()
	c.pending.FailAll(xerr.New(xerr.CodeUnknown, "client closed"))
	c.sendq.Close()
	c.eventq.Close()
}

// setState performs a transition and emits it. Caller holds the lock.
func (c *client) setState(next State, xe *xerr.Error) {
	if c.state == next {
		return
	}
	old := c.state
	c.state = next
	c.logger.Debug("state change", xlog.Str("from", old.String()), xlog.State(next.String()))
	c.emit(StateChange{Old: old, New: next, Err: xe})
}

// emit dispatches an event without holding up the caller; the event queue
// keeps delivery serialized and ordered.
func (c *client) emit(change StateChange) {
	if err := c.eventq.Push(func() { c.handler.OnState(change) }); err != nil {
		c.logger.Warn("state event dropped", xlog.Err(err))
	}
}

func wsScheme(secure bool) string {
	if secure {
		return "wss"
	}
	return "ws"
}

func httpScheme(secure bool) string {
	if secure {
		return "https"
	}
	return "http"
}
