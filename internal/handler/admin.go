package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kzclabs/kzc-wallet/internal/auth"
	"github.com/kzclabs/kzc-wallet/internal/domain"
	"github.com/kzclabs/kzc-wallet/internal/logging"
	"github.com/kzclabs/kzc-wallet/internal/service/price"
	"github.com/kzclabs/kzc-wallet/internal/service/wallet"
)

type adminWalletService interface {
	Distribute(ctx context.Context, req wallet.DistributeRequest) (int, error)
	Hold(ctx context.Context, transactionID uuid.UUID, heldBy string) error
	Reverse(ctx context.Context, transactionID uuid.UUID, reversedBy string) error
}

type adminPriceService interface {
	SetPhase(ctx context.Context, in price.SetPhaseInput) (*domain.PricePhase, error)
}

type AdminHandler struct {
	wallets adminWalletService
	prices  adminPriceService
}

func NewAdminHandler(wallets adminWalletService, prices adminPriceService) *AdminHandler {
	return &AdminHandler{wallets: wallets, prices: prices}
}

type distributeRequest struct {
	Username string          `json:"username"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note"`
}

func (r distributeRequest) Validate() []FieldError {
	var errs []FieldError
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

func (h *AdminHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req distributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	count, err := h.wallets.Distribute(r.Context(), wallet.DistributeRequest{
		Username:      req.Username,
		Amount:        req.Amount,
		Note:          req.Note,
		DistributedBy: claims.UserID.String(),
	})
	if err != nil {
		log.Warn("distribution failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{"recipients": count})
}

func (h *AdminHandler) Hold(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	transactionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.wallets.Hold(r.Context(), transactionID, claims.UserID.String()); err != nil {
		logging.FromContext(r.Context()).Warn("hold failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"message": "transaction held"})
}

func (h *AdminHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	transactionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.wallets.Reverse(r.Context(), transactionID, claims.UserID.String()); err != nil {
		logging.FromContext(r.Context()).Warn("reversal failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"message": "transaction reversed"})
}

type setPhaseRequest struct {
	BasePrice              decimal.Decimal `json:"base_price"`
	TargetPrice            decimal.Decimal `json:"target_price"`
	Trend                  string          `json:"trend"`
	RisingDurationHours    decimal.Decimal `json:"rising_duration_hours"`
	FallingDurationHours   decimal.Decimal `json:"falling_duration_hours"`
	StableDurationHours    decimal.Decimal `json:"stable_duration_hours"`
	StableFluctuationRange decimal.Decimal `json:"stable_fluctuation_range"`
}

func (r setPhaseRequest) Validate() []FieldError {
	var errs []FieldError

	if !r.BasePrice.IsPositive() {
		errs = append(errs, FieldError{Field: "base_price", Message: "must be greater than 0"})
	}

	if r.Trend == "" {
		errs = append(errs, FieldError{Field: "trend", Message: "required"})
	} else if !domain.Trend(r.Trend).IsValid() {
		errs = append(errs, FieldError{Field: "trend", Message: "must be rising, falling, or stable"})
	}

	return errs
}

type pricePhaseDTO struct {
	ID               uuid.UUID       `json:"id"`
	BasePrice        decimal.Decimal `json:"base_price"`
	TargetPrice      decimal.Decimal `json:"target_price"`
	Trend            string          `json:"trend"`
	ChangePercentage decimal.Decimal `json:"change_percentage"`
	PhaseStartedAt   time.Time       `json:"phase_started_at"`
	PhaseEndsAt      time.Time       `json:"phase_ends_at"`
}

func (h *AdminHandler) SetPhase(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req setPhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	adminID := claims.UserID
	phase, err := h.prices.SetPhase(r.Context(), price.SetPhaseInput{
		BasePrice:              req.BasePrice,
		TargetPrice:            req.TargetPrice,
		Trend:                  domain.Trend(req.Trend),
		RisingDurationHours:    req.RisingDurationHours,
		FallingDurationHours:   req.FallingDurationHours,
		StableDurationHours:    req.StableDurationHours,
		StableFluctuationRange: req.StableFluctuationRange,
		UpdatedBy:              &adminID,
	})
	if err != nil {
		log.Warn("price phase update failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, pricePhaseDTO{
		ID:               phase.ID,
		BasePrice:        phase.BasePrice,
		TargetPrice:      phase.TargetPrice,
		Trend:            string(phase.Trend),
		ChangePercentage: phase.ChangePercentage,
		PhaseStartedAt:   phase.PhaseStartedAt,
		PhaseEndsAt:      phase.PhaseEndsAt,
	})
}
