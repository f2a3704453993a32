package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidReference),
		domain.IsKind(err, domain.ErrFetchFailed),
		domain.IsKind(err, domain.ErrNotAPDF),
		domain.IsKind(err, domain.ErrExtractionFailed),
		domain.IsKind(err, domain.ErrInsufficientContent),
		domain.IsKind(err, domain.ErrValidationFailed),
		domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicErrorMessage never exposes the text of unexpected failures.
func publicErrorMessage(err error, status int) string {
	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		return domain.PublicMessage(err)
	}
	switch status {
	case http.StatusInternalServerError:
		return "internal server error"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable, retry later"
	case http.StatusNotFound:
		return "not found"
	default:
		return err.Error()
	}
}
