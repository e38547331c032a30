package dispatcher

import (
	"context"
	"errors"
	"net"

	"github.com/local/ocrextractor/internal/ai"
)

// Result labels for recognition metrics.
const (
	resultOK            = "ok"
	resultEmpty         = "empty"
	resultNotConfigured = "not_configured"
	resultRateLimited   = "rate_limited"
	resultTimeout       = "timeout"
	resultCanceled      = "canceled"
	resultClientError   = "http_4xx"
	resultServerError   = "http_5xx"
	resultNetwork       = "network"
	resultError         = "error"
)

// classifyResult maps a recognition outcome to a metric label.
func classifyResult(text string, err error) string {
	if err == nil {
		if text == "" {
			return resultEmpty
		}
		return resultOK
	}

	if ai.IsNotConfigured(err) {
		return resultNotConfigured
	}
	if ai.IsRateLimited(err) {
		return resultRateLimited
	}
	if isTimeoutError(err) {
		return resultTimeout
	}
	if errors.Is(err, context.Canceled) {
		return resultCanceled
	}

	var httpErr *ai.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= 500 {
			return resultServerError
		}
		return resultClientError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resultNetwork
	}
	return resultError
}

// isTimeoutError checks if error is specifically a timeout
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
