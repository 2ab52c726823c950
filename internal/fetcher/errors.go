package fetcher

import "errors"

// TransientError is a fetch failure plausibly resolved by retrying:
// timeouts, connection resets, 408/429 and 5xx responses.
type TransientError struct {
	Reason string
}

func (e *TransientError) Error() string { return e.Reason }

// PermanentError is a fetch failure retrying cannot fix: wrong content type,
// size limit exceeded, non-retryable 4xx, redirect limit.
type PermanentError struct {
	Reason string
}

func (e *PermanentError) Error() string { return e.Reason }

// errTooManyRedirects aborts the redirect chain; http.Client wraps it in a
// *url.Error, so classification unwraps with errors.As.
var errTooManyRedirects = errors.New("redirect limit exceeded")

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
