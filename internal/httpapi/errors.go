package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"penjualan/backend/internal/logging"
	"penjualan/backend/internal/sales"
	"penjualan/backend/internal/service"
	"penjualan/backend/internal/store"
)

var errCSRFMismatch = errors.New("missing or invalid CSRF token")

// writeServiceError is the one place where domain errors become HTTP
// responses. 5xx responses carry a generic message; the cause is logged.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context(), a.logger).Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, message)
}

func classifyError(err error) (int, string) {
	var saleErr *sales.Error
	if errors.As(err, &saleErr) {
		switch saleErr.Kind {
		case sales.KindEmptyOrder, sales.KindInvalidPayment, sales.KindInvalidQuantity,
			sales.KindNoteTooLong, sales.KindPaymentMethodInactive:
			return http.StatusUnprocessableEntity, saleErr.Error()
		case sales.KindLineProductNotFound, sales.KindPaymentMethodNotFound:
			return http.StatusNotFound, saleErr.Error()
		case sales.KindConflict:
			return http.StatusConflict, "sale conflicts with an existing record"
		case sales.KindStorage:
			return http.StatusServiceUnavailable, "service temporarily unavailable, please retry"
		}
		return http.StatusInternalServerError, "internal server error"
	}

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity, validationErr.Error()
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, errInvalidCredentials), errors.Is(err, errInvalidToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, errCSRFMismatch):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "resource already exists"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
