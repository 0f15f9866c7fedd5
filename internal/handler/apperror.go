package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrForbidden        = &AppError{http.StatusForbidden, "FORBIDDEN", "Insufficient privileges"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInsufficientFunds   = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrAccountBanned       = &AppError{http.StatusForbidden, "ACCOUNT_BANNED", "Account is banned"}
	ErrAccountSuspended    = &AppError{http.StatusForbidden, "ACCOUNT_SUSPENDED", "Account is suspended"}
	ErrFeatureRestricted   = &AppError{http.StatusForbidden, "FEATURE_RESTRICTED", "This feature is restricted for your account"}
	ErrKYCRequired         = &AppError{http.StatusForbidden, "KYC_REQUIRED", "KYC approval required"}
	ErrPINNotSet           = &AppError{http.StatusUnprocessableEntity, "PIN_NOT_SET", "Wallet PIN has not been set"}
	ErrInvalidPIN          = &AppError{http.StatusUnauthorized, "INVALID_PIN", "Wallet PIN is incorrect"}
	ErrMiningDisabled      = &AppError{http.StatusUnprocessableEntity, "MINING_DISABLED", "Mining is currently disabled"}
	ErrSwapDisabled        = &AppError{http.StatusUnprocessableEntity, "SWAP_DISABLED", "Swaps are currently disabled"}
	ErrActiveSession       = &AppError{http.StatusConflict, "ACTIVE_SESSION_EXISTS", "A mining session is already active"}
	ErrNoActiveSession     = &AppError{http.StatusUnprocessableEntity, "NO_ACTIVE_SESSION", "No active mining session"}
	ErrSessionNotComplete  = &AppError{http.StatusUnprocessableEntity, "SESSION_NOT_COMPLETE", "Mining session has not finished yet"}
	ErrAlreadyClaimed      = &AppError{http.StatusConflict, "ALREADY_CLAIMED", "Mining reward already claimed"}
	ErrSelfTransfer        = &AppError{http.StatusUnprocessableEntity, "SELF_TRANSFER_NOT_ALLOWED", "Cannot transfer to your own address"}
	ErrRecipientNotFound   = &AppError{http.StatusUnprocessableEntity, "RECIPIENT_NOT_FOUND", "Recipient address not found"}
	ErrInvalidAmount       = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidCurrency     = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Invalid currency"}
	ErrInvalidCurrencyPair = &AppError{http.StatusBadRequest, "INVALID_CURRENCY_PAIR", "Unsupported currency pair"}
	ErrBelowMinSwapAmount  = &AppError{http.StatusUnprocessableEntity, "BELOW_MIN_SWAP_AMOUNT", "Amount is below the minimum swap amount"}
	ErrInvalidTrend        = &AppError{http.StatusBadRequest, "INVALID_TREND", "Trend must be rising, falling, or stable"}
	ErrTransactionFinal    = &AppError{http.StatusConflict, "TRANSACTION_FINAL", "Transaction is no longer in a modifiable state"}
	ErrVersionConflict     = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
)
