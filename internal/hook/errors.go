package hook

import "errors"

var (
	// ErrUnknownKind is returned for hook names that are not entry points.
	ErrUnknownKind = errors.New("unknown hook")

	// ErrMalformedInput is returned alongside a default event when stdin is
	// not a JSON object.
	ErrMalformedInput = errors.New("malformed hook input")
)
