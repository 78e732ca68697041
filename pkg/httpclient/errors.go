package httpclient

import "fmt"

// RetryableError is returned when all retry attempts are exhausted.
type RetryableError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RetryableError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (HTTP %d): %v", e.Message, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}
