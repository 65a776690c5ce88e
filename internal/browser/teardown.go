package browser

import "strings"

// Closing a browser races against the Chrome process exiting on every
// platform: Windows reports closed pipes, macOS bad file descriptors,
// Linux broken pipes. These are artifacts of asynchronous process
// teardown, not functional failures, so they are classified once here
// and logged at debug level instead of surfaced as warnings.
var expectedTeardownPatterns = []string{
	"broken pipe",
	"pipe closed",
	"closed pipe",
	"bad file descriptor",
	"connection reset",
	"file already closed",
	"process already finished",
	"websocket: close",
	"context canceled",
}

// ExpectedTeardownError reports whether err matches a known benign
// process-teardown failure.
func ExpectedTeardownError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range expectedTeardownPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
