package tracking

import "errors"

// ErrAlreadyRunning is returned when Run is called on a running tracker.
var ErrAlreadyRunning = errors.New("tracking: tracker already running")
