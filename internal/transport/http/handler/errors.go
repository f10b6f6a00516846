package handler

const (
	errInternalServer     = "Internal server error"
	errInvalidRequest     = "Invalid request body"
	errInvalidCredentials = "Invalid email or password"
	errUnknownEventKind   = "Unknown event kind"
	errInvalidEvent       = "Event is missing required fields"
	errInvalidLimit       = "limit must be a positive integer"
	errScanRunning        = "Scan already running"
)
