package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/nomina-co/nomina/internal/platform/db"
)

// ErrValidation marks malformed or invalid request input.
var ErrValidation = errors.New("validation failed")

// RespondError writes the fallback problem for errors a handler did not map
// itself. Internal details never reach the client.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case db.IsUniqueViolation(err):
		Problem(w, http.StatusConflict, "Duplicate", "the row already exists")
	case errors.Is(err, context.DeadlineExceeded):
		Problem(w, http.StatusGatewayTimeout, "Timeout", "the operation did not finish in time")
	case errors.Is(err, context.Canceled):
		Problem(w, 499, "Client Closed Request", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
