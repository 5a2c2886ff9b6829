package handler

import (
	"context"
	"net/http"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/service"
	"github.com/go-chi/chi/v5"
)

// AccountHandler handles HTTP requests for account endpoints.
type AccountHandler struct {
	accountSvc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// amountRequest is the JSON request body for deposits and withdrawals.
type amountRequest struct {
	Amount *float64 `json:"amount" validate:"required"`
}

// accountResponse is the JSON response for account endpoints.
type accountResponse struct {
	AccountID   string  `json:"account_id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	FullName    string  `json:"full_name"`
	CashBalance float64 `json:"cash_balance"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Create handles POST /accounts.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateAccountRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	account, err := h.accountSvc.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildAccountResponse(account))
}

// Get handles GET /accounts/{account_id}.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountSvc.Get(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildAccountResponse(account))
}

// Deposit handles POST /accounts/{account_id}/deposits.
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.accountSvc.Deposit)
}

// Withdraw handles POST /accounts/{account_id}/withdrawals.
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.accountSvc.Withdraw)
}

func (h *AccountHandler) adjust(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, accountID string, amount float64) (*domain.Account, error),
) {
	var req amountRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := service.ValidateStruct(req); err != nil {
		writeServiceError(w, err)
		return
	}

	account, err := apply(r.Context(), chi.URLParam(r, "account_id"), *req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildAccountResponse(account))
}

func buildAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		AccountID:   a.AccountID,
		Username:    a.Username,
		Email:       a.Email,
		FullName:    a.FullName,
		CashBalance: dollars(a.CashBalance),
		CreatedAt:   formatTime(a.CreatedAt),
		UpdatedAt:   formatTime(a.UpdatedAt),
	}
}
