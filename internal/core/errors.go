package core

import "errors"

// ErrNoActiveServer means no active termination server is registered; a
// session cannot be started. Surfaced to the client as a request error.
var ErrNoActiveServer = errors.New("no active server available")
