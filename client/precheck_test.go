package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"knightcam.github.io/camlink/xerr"
)

func precheckServer(t *testing.T, status int, body precheckBody) (*httptest.Server, *http.Request) {
	t.Helper()
	var captured http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r.Clone(context.Background())
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestPrecheckOK(t *testing.T) {
	srv, captured := precheckServer(t, http.StatusOK, precheckBody{Success: true, ServerVersion: "2.0.0"})
	p := newHTTPPrecheck(srv.URL, "1.2.0", srv.Client(), time.Second)
	if xe := p.Check(context.Background()); xe != nil {
		t.Fatal("expected success, got", xe)
	}
	if captured.URL.Path != "/auth/precheck" {
		t.Error("wrong path:", captured.URL.Path)
	}
	if got := captured.URL.Query().Get("clientVersion"); got != "1.2.0" {
		t.Error("missing clientVersion query param:", got)
	}
	if got := captured.Header.Get("X-Client-Version"); got != "1.2.0" {
		t.Error("missing X-Client-Version header:", got)
	}
}

func TestPrecheckServerVersionTooLow(t *testing.T) {
	srv, _ := precheckServer(t, http.StatusOK, precheckBody{
		Success:            false,
		Code:               "server_version_too_low",
		Message:            "server upgrade required",
		ServerVersion:      "1.0.0",
		MinRequiredVersion: "2.0.0",
	})
	p := newHTTPPrecheck(srv.URL, "2.5.0", srv.Client(), time.Second)
	xe := p.Check(context.Background())
	if xe == nil || xe.Code != xerr.CodeServerVersionTooLow {
		t.Fatal("expected ServerVersionTooLow, got", xe)
	}
	if xe.MinRequiredVersion != "2.0.0" || xe.ServerVersion != "1.0.0" {
		t.Error("version context lost:", xe)
	}
	if xe.ClientVersion != "2.5.0" {
		t.Error("client version not stamped:", xe.ClientVersion)
	}
	if !xe.AuthClass() {
		t.Error("version mismatch must be auth-class")
	}
}

func TestPrecheckUnauthorized(t *testing.T) {
	srv, _ := precheckServer(t, http.StatusUnauthorized, precheckBody{Message: "bad token"})
	p := newHTTPPrecheck(srv.URL, "1.0.0", srv.Client(), time.Second)
	xe := p.Check(context.Background())
	if xe == nil || xe.Code != xerr.CodeAuthenticationFailed {
		t.Fatal("expected AuthenticationFailed, got", xe)
	}
	if xe.Message != "bad token" {
		t.Error("server message lost:", xe.Message)
	}
}

func TestPrecheckVersionIncompatible(t *testing.T) {
	srv, _ := precheckServer(t, http.StatusForbidden, precheckBody{Code: "version_incompatible"})
	p := newHTTPPrecheck(srv.URL, "0.9.0", srv.Client(), time.Second)
	xe := p.Check(context.Background())
	if xe == nil || xe.Code != xerr.CodeVersionIncompatible {
		t.Fatal("expected VersionIncompatible, got", xe)
	}
}

func TestPrecheckServerError(t *testing.T) {
	srv, _ := precheckServer(t, http.StatusInternalServerError, precheckBody{})
	p := newHTTPPrecheck(srv.URL, "1.0.0", srv.Client(), time.Second)
	xe := p.Check(context.Background())
	if xe == nil || xe.Code != xerr.CodeServerError {
		t.Fatal("expected ServerError, got", xe)
	}
	if xe.AuthClass() {
		t.Error("server error must stay retryable")
	}
}

func TestPrecheckUnreachable(t *testing.T) {
	p := newHTTPPrecheck("http://127.0.0.1:1", "1.0.0", &http.Client{}, time.Second)
	xe := p.Check(context.Background())
	if xe == nil || xe.Code != xerr.CodeConnectionRefused {
		t.Fatal("expected ConnectionRefused, got", xe)
	}
}
