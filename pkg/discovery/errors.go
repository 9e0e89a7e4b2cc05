package discovery

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when the service is already
	// broadcasting.
	ErrAlreadyRunning = errors.New("discovery: already running")

	// ErrNotRunning is returned by operations that require an active
	// discovery session.
	ErrNotRunning = errors.New("discovery: not running")
)
