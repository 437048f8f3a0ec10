package atdw

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRetriesExhausted is returned once rate limiting or network failures
	// outlast the retry budget.
	ErrRetriesExhausted = errors.New("atdw: retries exhausted")
	ErrNotFound         = errors.New("atdw: not found")
)

// StatusError is a non-2xx response other than 429.
type StatusError struct {
	Code     int
	Endpoint string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("atdw: %s returned %d %s", e.Endpoint, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}
