package check

import "errors"

// ErrMalformedRequest is returned when a Request is missing required
// fields -- a programmer error, surfaced as an error rather than
// collapsed into a boolean false.
var ErrMalformedRequest = errors.New("check: malformed request")
