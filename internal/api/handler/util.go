package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avolkhin/billing-ledger/internal/api/problem"
	"github.com/avolkhin/billing-ledger/internal/domain"
	"go.uber.org/zap"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteDomainError maps ledger errors onto the API contract: validation
// failures become a field->messages map, business-rule failures a plain
// error message, and everything else a redacted RFC 7807 internal error.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		RespondJSON(w, http.StatusBadRequest, verr.Fields)
		return
	}

	var insufficient *domain.InsufficientFundsError
	if errors.As(err, &insufficient) {
		RespondJSON(w, http.StatusBadRequest, map[string]string{"error": insufficient.Error()})
		return
	}

	var noBalance *domain.BalanceNotFoundError
	if errors.As(err, &noBalance) {
		RespondJSON(w, http.StatusBadRequest, map[string]string{"error": noBalance.Error()})
		return
	}

	var noCurrency *domain.CurrencyNotFoundError
	if errors.As(err, &noCurrency) {
		RespondJSON(w, http.StatusBadRequest, map[string]string{"error": noCurrency.Error()})
		return
	}

	if errors.Is(err, domain.ErrUnsupportedConversion) {
		RespondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// The underlying cause stays in the logs; clients get a generic failure.
	logger.Error("transaction processing failed", zap.Error(err), zap.String("path", r.URL.Path))
	problem.Write(w, r, http.StatusInternalServerError, problem.Type("internal-server-error"),
		http.StatusText(http.StatusInternalServerError), "failed to process transaction")
}
