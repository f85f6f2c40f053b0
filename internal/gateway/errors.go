package gateway

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// unavailableHint tells the user how to bring the backend up.
const unavailableHint = "Backend service is not running. Please run: cd backend && docker-compose up -d"

// BackendUnreachableError means no connection to the backend could be made.
type BackendUnreachableError struct {
	URL string
	Err error
}

func (e *BackendUnreachableError) Error() string {
	return fmt.Sprintf("backend %s unreachable: %v", e.URL, e.Err)
}

func (e *BackendUnreachableError) Unwrap() error { return e.Err }

// BackendStatusError means the backend answered with a non-2xx status.
type BackendStatusError struct {
	StatusCode int
}

func (e *BackendStatusError) Error() string {
	return fmt.Sprintf("backend search failed: %d", e.StatusCode)
}

// isConnectionFailure reports whether err happened before any response was
// received: refused or reset dials, DNS failures, unreachable hosts.
func isConnectionFailure(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
