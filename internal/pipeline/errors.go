package pipeline

import (
	"fmt"
	"strings"
)

// AllChunksFailedError is returned when no chunk produced any text.
type AllChunksFailedError struct {
	Errors []error
}

func (e *AllChunksFailedError) Error() string {
	if len(e.Errors) == 0 {
		return "all chunks failed"
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("all %d chunks failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *AllChunksFailedError) Unwrap() []error {
	return e.Errors
}
