package envelope

import "encoding/json"

// wire is the raw JSON shape of every frame. Which fields are populated
// depends on the variant.
type wire struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Action  string          `json:"action,omitempty"`
	Params  map[string]any  `json:"params,omitempty"`
	Event   string          `json:"event,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Success *bool           `json:"success,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Marshal encodes a frame to its JSON text representation.
func Marshal(f Frame) ([]byte, error) {
	var w wire
	switch v := f.(type) {
	case *Request:
		if v.ID == "" {
			return nil, ErrMissingID
		}
		if v.Action == "" {
			return nil, ErrMissingAction
		}
		w = wire{ID: v.ID, Type: REQUEST.String(), Action: v.Action, Params: v.Params}
	case *Response:
		if v.ID == "" {
			return nil, ErrMissingID
		}
		success := v.Success
		w = wire{ID: v.ID, Type: RESPONSE.String(), Success: &success, Error: v.Error, Data: v.Data}
	case *Notification:
		if v.Event == "" {
			return nil, ErrMissingEvent
		}
		w = wire{Type: NOTIFICATION.String(), Event: v.Event, Data: v.Data}
	default:
		return nil, ErrUnknownFrameType
	}
	return json.Marshal(w)
}

// Unmarshal decodes a JSON text frame into its typed variant.
func Unmarshal(data []byte) (Frame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	switch w.Type {
	case REQUEST.String():
		if w.ID == "" {
			return nil, ErrMissingID
		}
		if w.Action == "" {
			return nil, ErrMissingAction
		}
		return &Request{ID: w.ID, Action: w.Action, Params: w.Params}, nil
	case RESPONSE.String():
		if w.ID == "" {
			return nil, ErrMissingID
		}
		// An omitted success field only counts as success when no error
		// is reported.
		success := w.Error == ""
		if w.Success != nil {
			success = *w.Success
		}
		return &Response{ID: w.ID, Success: success, Error: w.Error, Data: w.Data}, nil
	case NOTIFICATION.String():
		if w.Event == "" {
			return nil, ErrMissingEvent
		}
		return &Notification{Event: w.Event, Data: w.Data}, nil
	default:
		return nil, ErrUnknownFrameType
	}
}
