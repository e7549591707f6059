package client

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/google/uuid"
)

// TokenSource yields the current bearer token. The session store implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

type authMode int

const (
	authNone authMode = iota
	authOptional
	authRequired
)

type authModeKey struct{}

func withAuthMode(ctx context.Context, m authMode) context.Context {
	return context.WithValue(ctx, authModeKey{}, m)
}

func authModeFrom(ctx context.Context) authMode {
	m, _ := ctx.Value(authModeKey{}).(authMode)
	return m
}

// Transport stamps outbound requests with the proxy bypass header, a request
// id and, where the request asks for it, the bearer token.
type Transport struct {
	Base         http.RoundTripper
	Tokens       TokenSource
	BypassHeader string
	BypassValue  string
	Log          logging.Logger
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	req = req.Clone(ctx)

	if t.BypassHeader != "" {
		req.Header.Set(t.BypassHeader, t.BypassValue)
	}
	req.Header.Set("Accept", "application/json")

	reqID := req.Header.Get(common.RequestIDHeaderName)
	if reqID == "" {
		reqID = uuid.NewString()
		req.Header.Set(common.RequestIDHeaderName, reqID)
	}

	switch authModeFrom(ctx) {
	case authRequired:
		token, ok := t.token(ctx)
		if !ok {
			return nil, common.ErrUnauthenticated
		}
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	case authOptional:
		if token, ok := t.token(ctx); ok {
			req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := t.base().RoundTrip(req)
	if t.Log != nil {
		args := []any{"method", req.Method, "path", req.URL.Path, "request_id", reqID, "duration", time.Since(start)}
		if err != nil {
			t.Log.Debug(ctx, "request failed", append(args, "error", err)...)
		} else {
			t.Log.Debug(ctx, "request", append(args, "status", resp.StatusCode)...)
		}
	}
	return resp, err
}

func (t *Transport) token(ctx context.Context) (string, bool) {
	if t.Tokens == nil {
		return "", false
	}
	token, ok := t.Tokens.Token(ctx)
	return token, ok && token != ""
}
