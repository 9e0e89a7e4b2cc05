package validate

import "errors"

var (
	// ErrInvalidPeerAddress is returned when a peer address argument is
	// not a usable host or host:port.
	ErrInvalidPeerAddress = errors.New("invalid peer address")

	// ErrInvalidFilePath is returned when a file path argument for a send
	// is empty or refers to something other than a regular file.
	ErrInvalidFilePath = errors.New("invalid file path")
)
