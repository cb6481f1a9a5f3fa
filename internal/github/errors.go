package github

import (
	"errors"
	"fmt"

	gh "github.com/google/go-github/v80/github"
)

// RetriesExhaustedError is returned when every attempt against a single
// request target came back retryable.
type RetriesExhaustedError struct {
	URL      string
	Attempts int
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("github: exhausted %d retries for %s", e.Attempts, e.URL)
}

// IsNotFound reports whether err is a GitHub 404.
func IsNotFound(err error) bool {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode == 404
	}
	return false
}

// IsRetriesExhausted reports whether err means the retry budget ran out.
func IsRetriesExhausted(err error) bool {
	var re *RetriesExhaustedError
	return errors.As(err, &re)
}
