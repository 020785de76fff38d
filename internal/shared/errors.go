package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Transport and backend errors.
	//
	// ErrTransport marks a network or HTTP-level failure. It is always
	// retryable and never implies anything about the state of a job.
	ErrTransport          = fmt.Errorf("transport failure")
	ErrNotFound           = fmt.Errorf("not found")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// ErrStream marks a failure of the live event stream. The channel
	// handles it internally via reconnect and polling fallback.
	ErrStream = fmt.Errorf("event stream failure")

	// Job lifecycle errors
	ErrJobTerminal   = fmt.Errorf("job already in a terminal state")
	ErrDuplicateJob  = fmt.Errorf("job already tracked")
	ErrNoReadyItems  = fmt.Errorf("no ready items in scope")
	ErrNoFormats     = fmt.Errorf("no formats available")
	ErrGroupNotFound = fmt.Errorf("group not found")
	ErrItemNotFound  = fmt.Errorf("queue item not found")

	// Input validation errors
	ErrValidation      = fmt.Errorf("invalid input")
	ErrEmptyQuery      = fmt.Errorf("empty search query")
	ErrMalformedURL    = fmt.Errorf("malformed URL")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
