package httpadapter

import (
	"errors"
	"net/http"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	var remote *domain.RemoteAPIError
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrInvalidStateTransition),
		domain.IsKind(err, domain.ErrConcurrencyConflict),
		domain.IsKind(err, domain.ErrAlreadySubmitted):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrOCRFailure):
		return http.StatusServiceUnavailable
	case errors.As(err, &remote):
		if remote.Retryable {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
