// Package common contains shared constants and sentinel errors used across
// bazaar components.
package common

const (
	// AuthorizationHeaderName carries the bearer token on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// RequestIDHeaderName correlates a request with client-side log lines.
	RequestIDHeaderName = "X-Request-ID"

	// DefaultProxyBypassHeader is sent on every request so the tunnelling
	// proxy in front of the API forwards it without an interstitial page.
	DefaultProxyBypassHeader = "bypass-tunnel-reminder"
	DefaultProxyBypassValue  = "true"
)
