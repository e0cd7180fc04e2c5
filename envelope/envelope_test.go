package envelope

import (
	"encoding/json"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	req := NewRequest("1-1700000000000", "registerDevice", map[string]any{
		"deviceModel":   "HK-EOS1",
		"clientVersion": "1.2.0",
	})
	data, err := Marshal(req)
	if err != nil {
		t.Fatal("marshal failed:", err)
	}
	frame, err := Unmarshal(data)
	if err != nil {
		t.Fatal("unmarshal failed:", err)
	}
	got, ok := frame.(*Request)
	if !ok {
		t.Fatal("expected a request, got", frame.Type())
	}
	if got.ID != req.ID || got.Action != req.Action {
		t.Error("request fields lost:", got)
	}
	if got.Params["deviceModel"] != "HK-EOS1" {
		t.Error("params lost:", got.Params)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := &Response{ID: "2-1700000000000", Success: false, Error: "storage full"}
	data, err := Marshal(resp)
	if err != nil {
		t.Fatal("marshal failed:", err)
	}
	frame, err := Unmarshal(data)
	if err != nil {
		t.Fatal("unmarshal failed:", err)
	}
	got, ok := frame.(*Response)
	if !ok {
		t.Fatal("expected a response, got", frame.Type())
	}
	if got.Success || got.Error != "storage full" {
		t.Error("response fields lost:", got)
	}
}

func TestResponseSuccessDefaulting(t *testing.T) {
	// An omitted success field counts as success only without an error.
	frame, err := Unmarshal([]byte(`{"id":"7","type":"response"}`))
	if err != nil {
		t.Fatal("unmarshal failed:", err)
	}
	if !frame.(*Response).Success {
		t.Error("omitted success without error should default to true")
	}
	frame, err = Unmarshal([]byte(`{"id":"7","type":"response","error":"nope"}`))
	if err != nil {
		t.Fatal("unmarshal failed:", err)
	}
	if frame.(*Response).Success {
		t.Error("omitted success with an error should default to false")
	}
	frame, err = Unmarshal([]byte(`{"id":"7","type":"response","success":false}`))
	if err != nil {
		t.Fatal("unmarshal failed:", err)
	}
	if frame.(*Response).Success {
		t.Error("explicit false must win")
	}
}

func TestNotificationRoundTrip(t *testing.T) {
	payload, _ := json.Marshal(ConnectedData{
		ServerVersion: "2.1.0",
		PreviewSize:   &PreviewSize{Width: 1920, Height: 1080},
	})
	data, err := Marshal(&Notification{Event: EventConnected, Data: payload})
	if err != nil {
		t.Fatal("marshal failed:", err)
	}
	frame, err := Unmarshal(data)
	if err != nil {
		t.Fatal("unmarshal failed:", err)
	}
	n, ok := frame.(*Notification)
	if !ok {
		t.Fatal("expected a notification, got", frame.Type())
	}
	cd, err := n.ConnectedData()
	if err != nil {
		t.Fatal("decode payload:", err)
	}
	if cd.ServerVersion != "2.1.0" {
		t.Error("server version lost:", cd.ServerVersion)
	}
	if cd.PreviewSize == nil || cd.PreviewSize.Width != 1920 {
		t.Error("preview size lost:", cd.PreviewSize)
	}
}

func TestNotificationEmptyPayload(t *testing.T) {
	n := &Notification{Event: EventConnectionRejected}
	if d := n.RejectedData(); d == nil || d.Message != "" {
		t.Error("empty payload should decode to zero value, got", d)
	}
	cd, err := n.ConnectedData()
	if err != nil || cd == nil {
		t.Error("empty payload should decode to zero value, got", cd, err)
	}
}

func TestUnmarshalValidation(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{"empty frame", "", ErrEmptyFrame},
		{"unknown type", `{"type":"command"}`, ErrUnknownFrameType},
		{"request without id", `{"type":"request","action":"ping"}`, ErrMissingID},
		{"request without action", `{"id":"1","type":"request"}`, ErrMissingAction},
		{"response without id", `{"type":"response","success":true}`, ErrMissingID},
		{"notification without event", `{"type":"notification"}`, ErrMissingEvent},
	}
	for _, c := range cases {
		if _, err := Unmarshal([]byte(c.data)); err != c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
		}
	}
}

func TestMarshalValidation(t *testing.T) {
	if _, err := Marshal(&Request{Action: "ping"}); err != ErrMissingID {
		t.Error("expected ErrMissingID, got", err)
	}
	if _, err := Marshal(&Request{ID: "1"}); err != ErrMissingAction {
		t.Error("expected ErrMissingAction, got", err)
	}
	if _, err := Marshal(&Notification{}); err != ErrMissingEvent {
		t.Error("expected ErrMissingEvent, got", err)
	}
}
