package httpx

import (
	"errors"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/shared"
)

// RespondError maps domain errors to envelope responses. Unexpected errors
// surface as a generic internal error; the detail stays in the logs.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Fail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, shared.ErrInvalidArgument):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrAlreadyAssigned), errors.Is(err, shared.ErrUserExists):
		Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, shared.ErrTooManyAttempts):
		Fail(w, http.StatusTooManyRequests, err.Error())
	default:
		Fail(w, http.StatusInternalServerError, "internal error")
	}
}
