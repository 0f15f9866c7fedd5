package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAccountBanned       = errors.New("account banned")
	ErrAccountSuspended    = errors.New("account suspended")
	ErrFeatureRestricted   = errors.New("feature restricted for this account")
	ErrKYCRequired         = errors.New("identity verification required")
	ErrPINNotSet           = errors.New("wallet pin not set")
	ErrInvalidPIN          = errors.New("invalid wallet pin")
	ErrMiningDisabled      = errors.New("mining is disabled")
	ErrSwapDisabled        = errors.New("swaps are disabled")
	ErrActiveSessionExists = errors.New("active mining session already exists")
	ErrNoActiveSession     = errors.New("no active mining session")
	ErrSessionNotComplete  = errors.New("mining session not yet complete")
	ErrAlreadyClaimed      = errors.New("mining reward already claimed")
	ErrSelfTransfer        = errors.New("cannot send to own wallet")
	ErrRecipientNotFound   = errors.New("recipient wallet address not found")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrInvalidCurrencyPair = errors.New("invalid currency pair")
	ErrBelowMinSwapAmount  = errors.New("amount below minimum swap amount")
	ErrInvalidTrend        = errors.New("invalid price trend")
	ErrReferralCompleted   = errors.New("referral already completed")
	ErrTransactionFinal    = errors.New("transaction already held or reversed")
	ErrVersionConflict     = errors.New("optimistic lock conflict")
)
