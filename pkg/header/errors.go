package header

import "errors"

// Protocol errors. The deframer treats all of these as recoverable; the
// generator surfaces them to its caller.
var (
	ErrMalformedHeader   = errors.New("malformed header")
	ErrMissingField      = errors.New("missing mandatory field")
	ErrInconsistentField = errors.New("inconsistent header field")
)
