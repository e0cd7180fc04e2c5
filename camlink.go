// Package camlink maintains a persistent, authenticated control channel to a
// remote camera device server. It covers connection establishment,
// authentication precheck, request/response correlation, heartbeat liveness
// and bounded automatic reconnection; camera commands themselves are just
// actions carried over SendRequest.
package camlink

import (
	"knightcam.github.io/camlink/client"
)

// New creates a camera control client for the server at addr (host:port).
func New(addr string, options ...client.Option) client.Client {
	return client.New(addr, options...)
}
