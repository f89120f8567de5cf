package showdown

import "errors"

// ErrTimeout is returned when no matching message arrives within the
// caller's deadline. It is never retried internally; retry policy lives one
// layer up.
var ErrTimeout = errors.New("timed out waiting for a message")

// PopupError is a server-side rejection of a control action, carrying the
// popup text verbatim. Callers pattern-match the text to pick a backoff
// (rate-limit phrasing warrants a long one).
type PopupError struct {
	Text string
}

func (e *PopupError) Error() string {
	return "server popup: " + e.Text
}
