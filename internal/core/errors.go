package core

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedPlatform        = errors.New("unsupported platform")
	ErrDatabaseUnreachable        = errors.New("state database unreachable")
	ErrDatabaseQueryFailed        = errors.New("state database query failed")
	ErrTokenAbsent                = errors.New("no Cursor access token stored")
	ErrNotInstalled               = errors.New("neither Cursor nor Cursor Nightly is installed")
	ErrSwitchDeclined             = errors.New("channel switch declined")
	ErrOptionalFeatureUnavailable = errors.New("detailed usage statistics unavailable")
)

// RemoteAPIError is a non-2xx status or an empty body from a Cursor endpoint.
type RemoteAPIError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *RemoteAPIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d: empty response body", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.Status, e.Body)
}

// IsAuthFailure reports whether err carries a 401 or 403 from the remote API.
func IsAuthFailure(err error) bool {
	var apiErr *RemoteAPIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == 401 || apiErr.Status == 403
}
