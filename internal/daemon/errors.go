package daemon

import "errors"

var (
	// ErrDaemonAlreadyRunning is returned when trying to start a daemon
	// while another instance is already running on the configured address.
	ErrDaemonAlreadyRunning = errors.New("daemon already running")

	// ErrDaemonNotRunning is returned when trying to connect to a daemon
	// that is not running (no address/cookie file found).
	ErrDaemonNotRunning = errors.New("daemon not running")

	// ErrUnauthorized is returned when a request lacks valid authentication.
	ErrUnauthorized = errors.New("unauthorized")
)
