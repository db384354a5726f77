package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/avolkhin/billing-ledger/internal/ledger"
	"github.com/avolkhin/billing-ledger/internal/models"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// TransactionLister pages through the committed transaction log.
type TransactionLister interface {
	ListTransactions(ctx context.Context, limit, offset int) ([]models.Transaction, error)
}

// TransactionHandler exposes the three operation endpoints and the
// transaction log listing.
type TransactionHandler struct {
	validator *ledger.Validator
	processor *ledger.Processor
	lister    TransactionLister
	logger    *zap.Logger
}

func NewTransactionHandler(validator *ledger.Validator, processor *ledger.Processor, lister TransactionLister, logger *zap.Logger) *TransactionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionHandler{validator: validator, processor: processor, lister: lister, logger: logger}
}

// Conversion handles POST /api/transactions/conversion.
func (h *TransactionHandler) Conversion(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, h.validator.Conversion)
}

// ServiceSpend handles POST /api/transactions/service-spend.
func (h *TransactionHandler) ServiceSpend(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, h.validator.ServiceSpend)
}

// AccountTopUp handles POST /api/transactions/account-topup.
func (h *TransactionHandler) AccountTopUp(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, h.validator.AccountTopUp)
}

func (h *TransactionHandler) process(w http.ResponseWriter, r *http.Request, validate func(ledger.Request) (ledger.Operation, error)) {
	var req ledger.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	op, err := validate(req)
	if err != nil {
		WriteDomainError(w, r, h.logger, err)
		return
	}

	result, err := h.processor.Process(r.Context(), op)
	if err != nil {
		WriteDomainError(w, r, h.logger, err)
		return
	}

	RespondJSON(w, http.StatusCreated, result)
}

// List handles GET /api/transactions.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	txns, err := h.lister.ListTransactions(r.Context(), limit, offset)
	if err != nil {
		WriteDomainError(w, r, h.logger, err)
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"items": txns,
		"count": len(txns),
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
