package collector

import (
	"errors"
	"fmt"
	"net/http"

	"AssetJudge/internal/model"
)

var (
	// ErrQuotaExceeded aliases the model sentinel so callers can match either.
	ErrQuotaExceeded = model.ErrQuotaExceeded
	// ErrUpstream aliases the model sentinel for malformed or absent data.
	ErrUpstream = model.ErrUpstream
	// ErrBusy is returned by Gate when a scan is already running.
	ErrBusy = errors.New("scan already in progress")
	// ErrCoolingDown is returned by Gate during the post-quota cooldown.
	ErrCoolingDown = errors.New("cooling down after quota error")
)

// statusError classifies a non-200 HTTP response.
func statusError(source string, code int, body []byte) error {
	if len(body) > 200 {
		body = body[:200]
	}
	if code == http.StatusTooManyRequests {
		return fmt.Errorf("%s: status %d: %w", source, code, ErrQuotaExceeded)
	}
	return fmt.Errorf("%s: status %d, body: %s: %w", source, code, string(body), ErrUpstream)
}
