package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/dmitrijs2005/bazaar/internal/common"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 4 << 10

// RemoteError is a non-2xx response from the API.
type RemoteError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Status, http.StatusText(e.Status), e.Body)
}

// Is reports RemoteError as ErrRemoteFailed, and additionally as
// ErrUnauthenticated for 401/403 and ErrNotFound for 404.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case common.ErrRemoteFailed:
		return true
	case common.ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case common.ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// classify maps transport failures onto ErrTimeout and ErrNetworkUnavailable.
// Cancellation and errors it does not recognise are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", common.ErrTimeout, err)
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", common.ErrTimeout, err)
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &opErr),
		errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %w", common.ErrNetworkUnavailable, err)
	}

	return err
}

// retryable reports whether a failed GET may be repeated.
func retryable(err error) bool {
	return errors.Is(err, common.ErrTimeout) || errors.Is(err, common.ErrNetworkUnavailable)
}
