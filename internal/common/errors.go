package common

import "errors"

// Callers should use errors.Is to match these values; typed errors in the
// client and linking packages report themselves as one of them.
var (
	// ErrUnauthenticated means no valid session credential was available, or
	// the remote rejected the one that was sent.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrRemoteFailed is reported by every non-2xx response.
	ErrRemoteFailed = errors.New("remote request failed")

	// ErrRemoteMutationFailed means the primary create/update/delete of a
	// resource failed.
	ErrRemoteMutationFailed = errors.New("remote mutation failed")

	// ErrLinkageInconsistent means the primary mutation succeeded but the
	// follow-up change to the owning profile's reference list did not.
	ErrLinkageInconsistent = errors.New("profile linkage inconsistent")

	// ErrNotFound means the expected resource or reference was absent.
	ErrNotFound = errors.New("not found")

	// ErrTimeout means the request deadline elapsed before a response.
	ErrTimeout = errors.New("request timed out")

	// ErrNetworkUnavailable means the remote could not be reached at all.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrMalformedTimestamp means timestamp text matched no accepted layout.
	ErrMalformedTimestamp = errors.New("malformed timestamp")
)
