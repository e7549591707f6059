// Package strapitest is an in-memory stand-in for the marketplace REST API,
// for use in tests.
//
// It serves the auth, users, addresses, user-adverts, categories and upload
// endpoints with the same envelopes as the real service. Failures can be
// injected per method and path pattern with Fail, and every request is
// recorded for assertions.
package strapitest
