package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-console/internal/backend"
	"github.com/spec-kit/campus-console/internal/domain"
	"github.com/spec-kit/campus-console/internal/mutation"
	apperrors "github.com/spec-kit/campus-console/pkg/util/errorutil"
)

// toDomainError maps router, coordinator, backend and validation errors to
// the response taxonomy. Everything else goes through errorutil.
func toDomainError(err error) *apperrors.DomainError {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(fe.Code), " ", "_"))
		if code == "" {
			code = "HTTP_ERROR"
		}
		return apperrors.NewDomainError(code, fe.Message, fe.Code, nil)
	}

	var conflict *mutation.ConflictError
	if errors.As(err, &conflict) {
		return &apperrors.DomainError{
			Code:       "CONFLICT",
			Message:    "another change to this record is still in progress",
			HTTPStatus: http.StatusConflict,
			Details: map[string]any{
				"id":                conflict.EntityID,
				"pendingMutationId": conflict.PendingMutationID.String(),
			},
			Err: err,
		}
	}
	if errors.Is(err, mutation.ErrNotFound) {
		return &apperrors.DomainError{Code: "NOT_FOUND", Message: "record not found", HTTPStatus: http.StatusNotFound, Details: map[string]any{}, Err: err}
	}

	var timeout *mutation.TimeoutError
	if errors.As(err, &timeout) {
		return &apperrors.DomainError{
			Code:       "UPSTREAM_TIMEOUT",
			Message:    "the backend did not answer in time; the change was reverted",
			HTTPStatus: http.StatusGatewayTimeout,
			Details:    map[string]any{"id": timeout.EntityID, "mutationId": timeout.MutationID.String()},
			Err:        err,
		}
	}
	var network *mutation.NetworkError
	if errors.As(err, &network) {
		details := map[string]any{"id": network.EntityID, "mutationId": network.MutationID.String()}
		var httpErr *backend.HTTPError
		if errors.As(err, &httpErr) {
			details["upstreamStatus"] = httpErr.StatusCode
		}
		return &apperrors.DomainError{
			Code:       "UPSTREAM_FAILED",
			Message:    "the backend rejected the change; it was reverted",
			HTTPStatus: http.StatusBadGateway,
			Details:    details,
			Err:        err,
		}
	}

	var transition *domain.TransitionError
	if errors.As(err, &transition) {
		return apperrors.NewDomainError("VALIDATION_FAILED", transition.Error(), http.StatusBadRequest, map[string]any{
			"from": transition.From,
			"to":   transition.To,
		})
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]any, len(verrs))
		for _, fe := range verrs {
			fields[lowerFirst(fe.Field())] = fe.Tag()
		}
		return apperrors.NewDomainError("VALIDATION_FAILED", "request validation failed", http.StatusBadRequest, map[string]any{"fields": fields})
	}

	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusNotFound {
			return &apperrors.DomainError{Code: "NOT_FOUND", Message: "resource not found", HTTPStatus: http.StatusNotFound, Details: map[string]any{}, Err: err}
		}
		return &apperrors.DomainError{
			Code:       "UPSTREAM_FAILED",
			Message:    "backend request failed",
			HTTPStatus: http.StatusBadGateway,
			Details:    map[string]any{"upstreamStatus": httpErr.StatusCode},
			Err:        err,
		}
	}

	return apperrors.ToDomainError(err)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
