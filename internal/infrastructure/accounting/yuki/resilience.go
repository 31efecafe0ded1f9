package yuki

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
	"github.com/wkamphuis/invoiceflow/internal/infrastructure/resilience"
)

func remoteStatusError(operation string, resp *http.Response) *domain.RemoteAPIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &domain.RemoteAPIError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Retryable:  isRetryableHTTPStatus(resp.StatusCode),
		Detail:     strings.TrimSpace(string(raw)),
	}
}

func classifyYukiError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var remote *domain.RemoteAPIError
	if errors.As(err, &remote) {
		return resilience.ErrorClassification{
			Retryable:     remote.Retryable,
			RecordFailure: remote.Retryable,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

// contextCause surfaces caller cancellation untouched so the submission
// coordinator can record the CANCELLED reason.
func contextCause(err error) error {
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}
	return nil
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
