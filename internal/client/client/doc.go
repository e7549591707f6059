// Package client talks to the marketplace REST API.
//
// RESTClient implements Client over net/http. Reads arrive as
// {"data": ..., "meta": {"pagination": ...}} and writes are sent as
// {"data": partial}. Entities are addressed by documentId in URLs while
// relations are written as numeric ids.
//
// # Errors
//
// Non-2xx responses become *RemoteError, which matches common.ErrRemoteFailed
// and, by status, common.ErrUnauthenticated or common.ErrNotFound. Transport
// failures are classified as common.ErrTimeout or common.ErrNetworkUnavailable.
// Only GET requests are retried.
//
// # Auth
//
// Transport adds the bearer token from a TokenSource. Requests that need a
// session fail with common.ErrUnauthenticated without touching the network
// when no valid token exists.
package client
