package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"

	"knightcam.github.io/camlink/xerr"
)

// Prechecker runs the one-shot authentication and version check before the
// transport channel is opened.
type Prechecker interface {
	Check(ctx context.Context) *xerr.Error
}

// NewHTTP2Client builds an HTTP client speaking HTTP/2 over TLS, used for
// the precheck call against secure endpoints.
func NewHTTP2Client(tlsConfig *tls.Config) *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			TLSClientConfig: tlsConfig,
		},
	}
}

type httpPrecheck struct {
	url           string
	clientVersion string
	client        *http.Client
	timeout       time.Duration
}

func newHTTPPrecheck(base, clientVersion string, client *http.Client, timeout time.Duration) *httpPrecheck {
	return &httpPrecheck{
		url:           base + "/auth/precheck",
		clientVersion: clientVersion,
		client:        client,
		timeout:       timeout,
	}
}

// precheckBody is both the 200 response shape and the structured error body
// of 401/403 responses.
type precheckBody struct {
	Success            bool   `json:"success"`
	ServerVersion      string `json:"serverVersion,omitempty"`
	Code               string `json:"code,omitempty"`
	Message            string `json:"message,omitempty"`
	MinRequiredVersion string `json:"minRequiredVersion,omitempty"`
}

func (p *httpPrecheck) Check(ctx context.Context) *xerr.Error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.url+"?clientVersion="+url.QueryEscape(p.clientVersion), nil)
	if err != nil {
		return p.fail(xerr.Wrap(xerr.CodeUnknown, "build precheck request", err))
	}
	req.Header.Set("X-Client-Version", p.clientVersion)
	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return p.fail(xerr.Wrap(xerr.CodeTimeout, "precheck timed out", err))
		}
		return p.fail(xerr.Wrap(xerr.CodeConnectionRefused, "precheck request failed", err))
	}
	defer resp.Body.Close()
	var body precheckBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &body)

	switch {
	case resp.StatusCode == http.StatusOK:
		if !body.Success {
			return p.reject(&body)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return p.reject(&body)
	case resp.StatusCode >= 500:
		return p.fail(xerr.Newf(xerr.CodeServerError, "precheck failed with status %d", resp.StatusCode))
	default:
		return p.fail(xerr.Newf(xerr.CodeUnknown, "unexpected precheck status %d", resp.StatusCode))
	}
}

// reject maps a structured precheck error body onto an auth-class error.
func (p *httpPrecheck) reject(body *precheckBody) *xerr.Error {
	code := xerr.CodeAuthenticationFailed
	switch body.Code {
	case "server_version_too_low":
		code = xerr.CodeServerVersionTooLow
	case "version_incompatible":
		code = xerr.CodeVersionIncompatible
	}
	message := body.Message
	if message == "" {
		message = "precheck rejected"
	}
	return p.fail(&xerr.Error{
		Code:               code,
		Message:            message,
		ServerVersion:      body.ServerVersion,
		MinRequiredVersion: body.MinRequiredVersion,
	})
}

func (p *httpPrecheck) fail(e *xerr.Error) *xerr.Error {
	e.ClientVersion = p.clientVersion
	return e
}
