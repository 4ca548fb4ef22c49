package httpx

import (
	"errors"
	"net/http"

	"github.com/stockflow-hq/stockflow/internal/shared"
)

// RespondError maps domain errors to HTTP problem responses. Validation
// failures surface their field messages; anything unrecognised becomes a
// generic 500 with no internal detail leaked.
func RespondError(w http.ResponseWriter, err error) {
	var vErr *shared.ValidationError
	switch {
	case errors.As(err, &vErr):
		FieldProblem(w, vErr.Fields)
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrConflict), shared.IsUniqueViolation(err):
		Problem(w, http.StatusConflict, "Conflict", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
