package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kzclabs/kzc-wallet/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		appErr = ErrInsufficientFunds
	case errors.Is(err, domain.ErrAccountBanned):
		appErr = ErrAccountBanned
	case errors.Is(err, domain.ErrAccountSuspended):
		appErr = ErrAccountSuspended
	case errors.Is(err, domain.ErrFeatureRestricted):
		appErr = ErrFeatureRestricted
	case errors.Is(err, domain.ErrKYCRequired):
		appErr = ErrKYCRequired
	case errors.Is(err, domain.ErrPINNotSet):
		appErr = ErrPINNotSet
	case errors.Is(err, domain.ErrInvalidPIN):
		appErr = ErrInvalidPIN
	case errors.Is(err, domain.ErrMiningDisabled):
		appErr = ErrMiningDisabled
	case errors.Is(err, domain.ErrSwapDisabled):
		appErr = ErrSwapDisabled
	case errors.Is(err, domain.ErrActiveSessionExists):
		appErr = ErrActiveSession
	case errors.Is(err, domain.ErrNoActiveSession):
		appErr = ErrNoActiveSession
	case errors.Is(err, domain.ErrSessionNotComplete):
		appErr = ErrSessionNotComplete
	case errors.Is(err, domain.ErrAlreadyClaimed):
		appErr = ErrAlreadyClaimed
	case errors.Is(err, domain.ErrSelfTransfer):
		appErr = ErrSelfTransfer
	case errors.Is(err, domain.ErrRecipientNotFound):
		appErr = ErrRecipientNotFound
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidCurrencyPair):
		appErr = ErrInvalidCurrencyPair
	case errors.Is(err, domain.ErrInvalidCurrency):
		appErr = ErrInvalidCurrency
	case errors.Is(err, domain.ErrBelowMinSwapAmount):
		appErr = ErrBelowMinSwapAmount
	case errors.Is(err, domain.ErrInvalidTrend):
		appErr = ErrInvalidTrend
	case errors.Is(err, domain.ErrTransactionFinal):
		appErr = ErrTransactionFinal
	case errors.Is(err, domain.ErrVersionConflict):
		appErr = ErrVersionConflict
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
