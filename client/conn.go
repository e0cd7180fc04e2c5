package client

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errChannelClosed = errors.New("channel is closed")

// Conn is the raw duplex message channel. All transport failure subtypes
// surface through Recv returning an error; the state machine does not
// distinguish further.
type Conn interface {
	Open(ctx context.Context) error
	Send(data []byte) error
	Recv() ([]byte, error)
	Close() error
}

// Dialer produces a fresh Conn for one connection attempt.
type Dialer func() Conn

const writeTimeout = time.Second * 5

type wsConn struct {
	url  string
	tls  *tls.Config
	wmu  sync.Mutex
	conn *websocket.Conn
}

func newWSConn(url string, tlsConfig *tls.Config) *wsConn {
	return &wsConn{url: url, tls: tlsConfig}
}

func (c *wsConn) Open(ctx context.Context) error {
	dialer := websocket.Dialer{
		TLSClientConfig: c.tls,
	}
	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	c.conn = conn
	return nil
}

func (c *wsConn) Send(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	// Close may have run between the caller capturing this conn and the
	// queued write executing.
	if c.conn == nil {
		return errChannelClosed
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Recv() ([]byte, error) {
	c.wmu.Lock()
	conn := c.conn
	c.wmu.Unlock()
	if conn == nil {
		return nil, errChannelClosed
	}
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage {
			return data, nil
		}
		// the protocol is text frames only
	}
}

func (c *wsConn) Close() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
		time.Now().Add(time.Millisecond*500))
	err := c.conn.Close()
	c.conn = nil
	return err
}
