package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/hrms/internal/types"
)

// ErrBadRequest indicates a request that could not be decoded.
type ErrBadRequest struct {
	Message string
}

func (e *ErrBadRequest) Error() string {
	return fmt.Sprintf("bad request: %s", e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound   *types.NotFoundError
		transition *types.InvalidTransitionError
		validation *types.ValidationError
		transport  *types.TransportError
		forbidden  *types.ForbiddenError
		badRequest *ErrBadRequest
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &validation), errors.As(err, &badRequest):
		return http.StatusBadRequest
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &transport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
