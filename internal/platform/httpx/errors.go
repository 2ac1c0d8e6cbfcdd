package httpx

import (
	"errors"
	"net/http"

	"github.com/bukubesar/bukubesar/internal/ledger/shared"
)

// RespondError maps ledger errors to HTTP responses using RFC7807.
// Validation and invariant errors map to 4xx, persistence to 5xx.
func RespondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	title := "Internal Error"
	switch shared.KindOf(err) {
	case shared.KindValidation:
		status, title = http.StatusBadRequest, "Validation Failed"
	case shared.KindInvariant:
		status, title = http.StatusUnprocessableEntity, "Invariant Violation"
	case shared.KindNotFound:
		status, title = http.StatusNotFound, "Not Found"
	case shared.KindConflict:
		status, title = http.StatusConflict, "Conflict"
	case shared.KindPersistence:
		status, title = http.StatusInternalServerError, "Storage Failure"
	}

	detail := ProblemDetail{Title: title, Status: status}
	var le *shared.Error
	if errors.As(err, &le) {
		detail.Detail = le.Message
		detail.Code = le.Code
		detail.Field = le.Field
	} else if status < http.StatusInternalServerError {
		detail.Detail = err.Error()
	}
	JSON(w, status, detail)
}
