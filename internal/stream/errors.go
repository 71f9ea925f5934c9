package stream

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// RemoteCallFailedError reports that a rewrite request was not accepted.
// It is returned before any delta is produced.
type RemoteCallFailedError struct {
	Status int
	Body   string
}

func (e *RemoteCallFailedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote call failed with status %d", e.Status)
	}
	return fmt.Sprintf("remote call failed with status %d: %s", e.Status, e.Body)
}

// IsSuccess reports whether an HTTP status starts a readable stream.
func IsSuccess(status int) bool {
	return status/100 == 2
}

// CheckResponse returns a *RemoteCallFailedError for a non-2xx response,
// consuming at most a few kilobytes of its body.
func CheckResponse(resp *http.Response) error {
	if IsSuccess(resp.StatusCode) {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &RemoteCallFailedError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
