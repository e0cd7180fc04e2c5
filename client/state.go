// Package client implements the connection lifecycle engine for a remote
// camera device server: precheck, transport connect, handshake, device
// registration, heartbeat and bounded reconnection over one websocket
// channel.
package client

import (
	"knightcam.github.io/camlink/envelope"
	"knightcam.github.io/camlink/xerr"
)

// State is the connection lifecycle state. It is owned by the state machine;
// nothing else writes it.
type State uint8

const (
	// StateDisconnected is the initial and terminal state.
	StateDisconnected State = iota
	// StateConnecting covers precheck, transport open and handshake wait.
	StateConnecting
	// StateConnected means the server confirmed the channel.
	StateConnected
	// StateRegistered means the device registration was accepted.
	StateRegistered
	// StateDisconnecting is an explicit teardown in progress.
	StateDisconnecting
	// StateReconnecting means the retry policy is driving recovery after an
	// unexpected channel loss.
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateRegistered:
		return "Registered"
	case StateDisconnecting:
		return "Disconnecting"
	case StateReconnecting:
		return "Reconnecting"
	default:
		return "Unknown"
	}
}

// live reports whether requests may be sent in this state.
func (s State) live() bool {
	return s == StateConnected || s == StateRegistered
}

// StateChange is one event on the state-change stream. During reconnection
// Old and New are both StateReconnecting and Attempt carries the incremental
// progress counter.
type StateChange struct {
	Old     State
	New     State
	Err     *xerr.Error
	Attempt int
}

// ServerInfo is captured once per successful handshake and overwritten on
// each new connection.
type ServerInfo struct {
	ServerVersion string
	PreviewSize   *envelope.PreviewSize
}

// Handler receives the outward-facing event streams: lifecycle changes for
// UI binding and raw notifications for business-logic consumers. Calls are
// serialized and in order.
type Handler interface {
	OnState(change StateChange)
	OnNotification(n *envelope.Notification)
}

type emptyHandler struct{}

func (h *emptyHandler) OnState(change StateChange) {}

func (h *emptyHandler) OnNotification(n *envelope.Notification) {}
