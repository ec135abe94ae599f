package router

import (
	"net"
	"net/http"

	"github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/httpclient"
	"github.com/settlehq/settle/internal/logger"
)

func shouldRetry(logger *logger.Logger, err error) bool {
	if httpErr, ok := httpclient.IsHTTPError(err); ok {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			logger.Debugw("retrying due to HTTP error",
				"status_code", httpErr.StatusCode,
				"error", httpErr,
			)
			return true
		}
		logger.Debugw("non-retryable HTTP error",
			"status_code", httpErr.StatusCode,
			"error", httpErr,
		)
		return false
	}

	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		logger.Debugw("retrying due to network timeout", "error", netErr)
		return true
	}

	if errors.IsDependencyUnavailable(err) {
		return true
	}

	// malformed or stale messages will never succeed
	if errors.IsValidation(err) ||
		errors.IsNotFound(err) ||
		errors.IsIllegalState(err) ||
		errors.IsPermissionDenied(err) {
		return false
	}

	return true
}
