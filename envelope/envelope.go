// Package envelope defines the JSON wire envelope exchanged with the camera
// server. Every text frame is one of three variants: a Request carrying an id
// and an action, a Response echoing the id of its request, or a Notification
// carrying a server-pushed event without an id.
package envelope

import "encoding/json"

// Error represents an envelope codec error code.
type Error uint8

const (
	ErrEmptyFrame Error = iota + 1
	ErrUnknownFrameType
	ErrMissingID
	ErrMissingAction
	ErrMissingEvent
)

func (e Error) Error() string {
	switch e {
	case ErrEmptyFrame:
		return "empty frame"
	case ErrUnknownFrameType:
		return "unknown frame type"
	case ErrMissingID:
		return "frame is missing id"
	case ErrMissingAction:
		return "request is missing action"
	case ErrMissingEvent:
		return "notification is missing event"
	default:
		return "unknown error"
	}
}

// Type discriminates the envelope variants.
type Type uint8

const (
	REQUEST Type = iota
	RESPONSE
	NOTIFICATION
)

func (t Type) String() string {
	switch t {
	case REQUEST:
		return "request"
	case RESPONSE:
		return "response"
	case NOTIFICATION:
		return "notification"
	default:
		return "unknown"
	}
}

// Frame is the tagged union over the three envelope variants.
type Frame interface {
	Type() Type
}

// Actions the client issues over the channel.
const (
	ActionPing           = "ping"
	ActionRegisterDevice = "registerDevice"
)

// Notification events consumed by the connection core. Any other event is
// passed through to business-logic consumers untouched.
const (
	EventConnected           = "connected"
	EventConnectionRejected  = "connection_rejected"
	EventVersionIncompatible = "version_incompatible"
)

// Request is a client-to-server call. ID is unique per connection lifetime;
// the matching Response echoes it.
type Request struct {
	ID     string
	Action string
	Params map[string]any
}

func (r *Request) Type() Type { return REQUEST }

func NewRequest(id, action string, params map[string]any) *Request {
	return &Request{ID: id, Action: action, Params: params}
}

// Response answers the Request with the same ID. A failed call reports
// Success=false with Error set; Data carries the action-specific payload.
type Response struct {
	ID      string
	Success bool
	Error   string
	Data    json.RawMessage
}

func (r *Response) Type() Type { return RESPONSE }

// Notification is a server push. It never carries an id.
type Notification struct {
	Event string
	Data  json.RawMessage
}

func (n *Notification) Type() Type { return NOTIFICATION }

// PreviewSize is the camera preview dimensions advertised in the handshake.
type PreviewSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ConnectedData is the payload of the "connected" handshake notification.
type ConnectedData struct {
	ServerVersion string       `json:"serverVersion"`
	PreviewSize   *PreviewSize `json:"previewSize,omitempty"`
}

// RejectedData is the payload of "connection_rejected" and
// "version_incompatible" notifications.
type RejectedData struct {
	Message            string `json:"message,omitempty"`
	ServerVersion      string `json:"serverVersion,omitempty"`
	MinRequiredVersion string `json:"minRequiredVersion,omitempty"`
}

// ConnectedData decodes the notification payload as a handshake confirmation.
func (n *Notification) ConnectedData() (*ConnectedData, error) {
	var d ConnectedData
	if len(n.Data) == 0 {
		return &d, nil
	}
	if err := json.Unmarshal(n.Data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// RejectedData decodes the notification payload as a rejection report.
func (n *Notification) RejectedData() *RejectedData {
	var d RejectedData
	if len(n.Data) > 0 {
		_ = json.Unmarshal(n.Data, &d)
	}
	return &d
}
