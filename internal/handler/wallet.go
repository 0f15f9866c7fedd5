package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kzclabs/kzc-wallet/internal/auth"
	"github.com/kzclabs/kzc-wallet/internal/domain"
	"github.com/kzclabs/kzc-wallet/internal/logging"
	"github.com/kzclabs/kzc-wallet/internal/service/wallet"
)

type walletService interface {
	Balances(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error)
	SetPIN(ctx context.Context, userID uuid.UUID, pin string) error
	Send(ctx context.Context, req wallet.SendRequest) (*wallet.SendResult, error)
}

type WalletHandler struct {
	wallets walletService
}

func NewWalletHandler(wallets walletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func parsePagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxPageLimit)
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

type balanceDTO struct {
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

func (h *WalletHandler) Balances(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	accounts, err := h.wallets.Balances(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load balances", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]balanceDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = balanceDTO{Currency: string(a.Currency), Balance: a.Balance}
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

type transactionDTO struct {
	ID              uuid.UUID       `json:"id"`
	Hash            string          `json:"hash"`
	Kind            string          `json:"kind"`
	SenderAddress   string          `json:"sender_address"`
	ReceiverAddress string          `json:"receiver_address"`
	Amount          decimal.Decimal `json:"amount"`
	Fee             decimal.Decimal `json:"fee"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	Note            *string         `json:"note,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:              t.ID,
		Hash:            t.Hash,
		Kind:            string(t.Kind),
		SenderAddress:   t.SenderAddress,
		ReceiverAddress: t.ReceiverAddress,
		Amount:          t.Amount,
		Fee:             t.Fee,
		Currency:        string(t.Currency),
		Status:          string(t.Status),
		Note:            t.Note,
		CreatedAt:       t.CreatedAt,
	}
}

func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit, offset := parsePagination(r)

	txs, total, err := h.wallets.Transactions(r.Context(), userID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list transactions", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transactionDTO, len(txs))
	for i := range txs {
		dtos[i] = toTransactionDTO(&txs[i])
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"transactions": dtos,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	})
}

type setPINRequest struct {
	PIN string `json:"pin"`
}

func (r setPINRequest) Validate() []FieldError {
	var errs []FieldError
	if len(r.PIN) != 4 {
		errs = append(errs, FieldError{Field: "pin", Message: "must be exactly 4 digits"})
		return errs
	}
	for _, c := range r.PIN {
		if c < '0' || c > '9' {
			errs = append(errs, FieldError{Field: "pin", Message: "must be exactly 4 digits"})
			break
		}
	}
	return errs
}

func (h *WalletHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req setPINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if err := h.wallets.SetPIN(r.Context(), userID, req.PIN); err != nil {
		logging.FromContext(r.Context()).Error("failed to set wallet pin", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"message": "wallet PIN updated"})
}

type sendRequest struct {
	ReceiverAddress string          `json:"receiver_address"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	PIN             string          `json:"pin"`
}

func (r sendRequest) Validate() []FieldError {
	var errs []FieldError

	if r.ReceiverAddress == "" {
		errs = append(errs, FieldError{Field: "receiver_address", Message: "required"})
	}

	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}

	if r.Currency == "" {
		errs = append(errs, FieldError{Field: "currency", Message: "required"})
	} else if !domain.Currency(r.Currency).IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be KZC or USDT"})
	}

	if r.PIN == "" {
		errs = append(errs, FieldError{Field: "pin", Message: "required"})
	}

	return errs
}

type sendResponse struct {
	Transaction      transactionDTO `json:"transaction"`
	ReceiverUsername string         `json:"receiver_username"`
}

func (h *WalletHandler) Send(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	result, err := h.wallets.Send(r.Context(), wallet.SendRequest{
		SenderID:        userID,
		ReceiverAddress: req.ReceiverAddress,
		Amount:          req.Amount,
		Currency:        domain.Currency(req.Currency),
		PIN:             req.PIN,
	})
	if err != nil {
		log.Warn("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, sendResponse{
		Transaction:      toTransactionDTO(result.Transaction),
		ReceiverUsername: result.ReceiverUsername,
	})
}
