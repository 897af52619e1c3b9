package httpapi

import (
	"time"

	"github.com/corebank/banking-backend/internal/domain"
)

// Monetary amounts cross the wire as decimal strings, never floats.

type createTransferRequest struct {
	SourceAccountID string `json:"sourceAccountId"`
	TargetAccountID string `json:"targetAccountId"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Description     string `json:"description"`
}

type transferResponse struct {
	ID              string  `json:"id"`
	SourceAccountID string  `json:"sourceAccountId"`
	TargetAccountID string  `json:"targetAccountId"`
	Amount          string  `json:"amount"`
	Currency        string  `json:"currency"`
	Status          string  `json:"status"`
	Description     string  `json:"description,omitempty"`
	RequestedAt     string  `json:"requestedAt"`
	CompletedAt     *string `json:"completedAt,omitempty"`
}

func toTransferResponse(t *domain.Transfer) transferResponse {
	resp := transferResponse{
		ID:              t.ID.String(),
		SourceAccountID: t.SourceAccountID.String(),
		TargetAccountID: t.TargetAccountID.String(),
		Amount:          t.Amount.String(),
		Currency:        t.Currency,
		Status:          string(t.Status),
		Description:     t.Description,
		RequestedAt:     t.RequestedAt.Format(time.RFC3339),
	}
	if t.CompletedAt != nil {
		completed := t.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}

func toTransferResponses(transfers []*domain.Transfer) []transferResponse {
	out := make([]transferResponse, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, toTransferResponse(t))
	}
	return out
}

type createAccountRequest struct {
	DocumentNumber string `json:"documentNumber"`
	HolderName     string `json:"holderName"`
	Type           string `json:"type"`
	Currency       string `json:"currency"`
}

type depositRequest struct {
	Amount string `json:"amount"`
}

type accountResponse struct {
	ID             string `json:"id"`
	AccountNumber  string `json:"accountNumber"`
	DocumentNumber string `json:"documentNumber"`
	HolderName     string `json:"holderName"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	Balance        string `json:"balance"`
	Currency       string `json:"currency"`
	CreatedAt      string `json:"createdAt"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:             a.ID.String(),
		AccountNumber:  a.AccountNumber,
		DocumentNumber: a.DocumentNumber,
		HolderName:     a.HolderName,
		Type:           string(a.Type),
		Status:         string(a.Status),
		Balance:        a.Balance.String(),
		Currency:       a.Currency,
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
}

func toAccountResponses(accounts []*domain.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return out
}
