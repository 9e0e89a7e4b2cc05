package transfer

import "errors"

var (
	// ErrAlreadyExists is returned by the registry when a transfer id is
	// already in use.
	ErrAlreadyExists = errors.New("transfer: id already registered")

	// ErrNotFound is returned when an operation targets an unknown transfer id.
	ErrNotFound = errors.New("transfer: id not found")

	// ErrBatchActive gates sendBatch while another batch is in flight (§4.5).
	ErrBatchActive = errors.New("transfer: a batch is already active")

	// ErrHeaderTooLarge means 64KiB were buffered without a terminating newline.
	ErrHeaderTooLarge = errors.New("transfer: metadata header exceeded 64KiB without newline")

	// ErrMalformedHeader means the header line was not valid JSON.
	ErrMalformedHeader = errors.New("transfer: malformed metadata header")

	// ErrSizeMismatch means the stream ended before the declared byte count.
	ErrSizeMismatch = errors.New("transfer: stream ended before declared size")

	// ErrSourceMissing means the local file named by a send request does not exist.
	ErrSourceMissing = errors.New("transfer: source file not found")

	// ErrCancelled marks a copy loop aborted by a cancel signal, distinct
	// from a genuine I/O failure.
	ErrCancelled = errors.New("transfer: cancelled")
)
