package model

import "errors"

var (
	// ErrInvalidSnapshot marks a snapshot that cannot be graded.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrQuotaExceeded is returned by data sources that were rate limited upstream.
	ErrQuotaExceeded = errors.New("upstream quota exceeded")
	// ErrUpstream marks a malformed or unavailable upstream response.
	ErrUpstream = errors.New("upstream data unavailable")
)
