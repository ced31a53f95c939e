package httpx

import (
	"errors"
	"net/http"

	"github.com/xerppy/xerppy/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Unauthenticated responses carry a WWW-Authenticate challenge so clients
// know a bearer token is expected.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrDuplicateUsername), errors.Is(err, shared.ErrDuplicateEmail):
		Problem(w, http.StatusBadRequest, "Registration Conflict", err.Error())
	case errors.Is(err, shared.ErrInactiveAccount):
		Problem(w, http.StatusBadRequest, "Inactive Account", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
