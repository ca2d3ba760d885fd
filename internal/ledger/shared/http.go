package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
)

// RespondError converts ledger errors into RFC 7807 problem responses.
// Unknown errors are logged and reported as a generic 500.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationErrs.Error())
		return
	}
	switch {
	case errors.Is(err, ErrUnbalanced),
		errors.Is(err, ErrTooFewLines),
		errors.Is(err, ErrInvalidLine),
		errors.Is(err, ErrAccountInactive):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrJournalNotFound),
		errors.Is(err, ErrPeriodNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrPeriodClosed),
		errors.Is(err, ErrPeriodOverlap),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidPeriodTransition),
		errors.Is(err, ErrDuplicateCode),
		errors.Is(err, ErrSourceAlreadyLinked):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		if logger != nil {
			logger.Error("ledger request failed", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "an unexpected error occurred")
	}
}
