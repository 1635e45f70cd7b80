package handler

import "errors"

type RetryableError interface {
	IsRetryable() bool
}

// IsErrorRetryable reports the answer of the first RetryableError in err's chain.
// Errors that do not say are not retryable.
func IsErrorRetryable(err error) bool {
	var rerr RetryableError
	if errors.As(err, &rerr) {
		return rerr.IsRetryable()
	}
	return false
}
