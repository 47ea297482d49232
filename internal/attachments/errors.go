package attachments

import "errors"

// Sentinel errors returned by the store. Filesystem failures (directory
// creation, listing, read/write/remove) are wrapped with context via
// fmt.Errorf and are not sentinels; callers can only treat them as opaque
// I/O failures.
var (
	// ErrEmptyID is returned when an attachment identifier is empty.
	ErrEmptyID = errors.New("attachment id cannot be empty")

	// ErrInvalidID is returned when an attachment identifier contains
	// characters outside [A-Za-z0-9_-].
	ErrInvalidID = errors.New("attachment id contains invalid characters")

	// ErrBadPayload is returned when an inline base64 payload cannot be
	// decoded.
	ErrBadPayload = errors.New("malformed base64 attachment payload")

	// ErrSourceNotFound is returned by CopyFile when the source path does
	// not exist.
	ErrSourceNotFound = errors.New("source attachment file does not exist")

	// ErrNotFound is returned by ReadBase64 when the requested path does
	// not exist.
	ErrNotFound = errors.New("attachment file not found")

	// ErrOutsideManagedDir is returned when a path canonicalizes to a
	// location outside the managed attachment directory.
	ErrOutsideManagedDir = errors.New("path is outside the managed attachment directory")
)
