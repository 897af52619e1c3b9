// Package httpapi exposes the transfer and account services over a small
// JSON REST surface.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/corebank/banking-backend/internal/domain"
	"github.com/corebank/banking-backend/internal/usecase/account"
	"github.com/corebank/banking-backend/internal/usecase/transfer"
)

// Handler holds the services the REST surface fronts.
type Handler struct {
	Transfers *transfer.TransferService
	Accounts  *account.AccountService
	Logger    *zap.Logger
}

// NewHandler creates a REST handler over the transfer and account services.
func NewHandler(transfers *transfer.TransferService, accounts *account.AccountService, logger *zap.Logger) *Handler {
	return &Handler{Transfers: transfers, Accounts: accounts, Logger: logger}
}

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}

	sourceID, err := uuid.Parse(req.SourceAccountID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid sourceAccountId")
		return
	}
	targetID, err := uuid.Parse(req.TargetAccountID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid targetAccountId")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid amount")
		return
	}

	created, err := h.Transfers.Create(r.Context(), transfer.CreateTransferInput{
		SourceAccountID: sourceID,
		TargetAccountID: targetID,
		Amount:          amount,
		Currency:        req.Currency,
		Description:     req.Description,
	})
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusAccepted, toTransferResponse(created))
}

func (h *Handler) getTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid transfer id")
		return
	}
	found, err := h.Transfers.GetByID(r.Context(), id)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, toTransferResponse(found))
}

func (h *Handler) listTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.Transfers.List(r.Context())
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, toTransferResponses(transfers))
}

// completeTransfer pushes a DEBITED transfer through its credit step
// synchronously instead of waiting for the next worker cycle.
func (h *Handler) completeTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid transfer id")
		return
	}
	completed, err := h.Transfers.Complete(r.Context(), id)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, toTransferResponse(completed))
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}

	created, err := h.Accounts.Create(r.Context(), account.CreateAccountInput{
		DocumentNumber: req.DocumentNumber,
		HolderName:     req.HolderName,
		Type:           domain.AccountType(req.Type),
		Currency:       req.Currency,
	})
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusCreated, toAccountResponse(created))
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid account id")
		return
	}
	found, err := h.Accounts.GetByID(r.Context(), id)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, toAccountResponse(found))
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Accounts.List(r.Context())
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, toAccountResponses(accounts))
}

func (h *Handler) activateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid account id")
		return
	}
	activated, err := h.Accounts.Activate(r.Context(), id)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, toAccountResponse(activated))
}

func (h *Handler) depositToAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid account id")
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid amount")
		return
	}

	updated, err := h.Accounts.Deposit(r.Context(), id, amount)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, toAccountResponse(updated))
}
