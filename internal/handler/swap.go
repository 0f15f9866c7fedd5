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
	"github.com/kzclabs/kzc-wallet/internal/service/swap"
)

type swapService interface {
	Execute(ctx context.Context, req swap.ExecuteRequest) (*domain.Swap, error)
	Quote(ctx context.Context) (*swap.RateQuote, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Swap, error)
}

type SwapHandler struct {
	swaps swapService
}

func NewSwapHandler(swaps swapService) *SwapHandler {
	return &SwapHandler{swaps: swaps}
}

type rateQuoteDTO struct {
	SwapEnabled      bool            `json:"swap_enabled"`
	MinSwapAmount    decimal.Decimal `json:"min_swap_amount"`
	SwapFee          decimal.Decimal `json:"swap_fee"`
	KZCToUSDT        decimal.Decimal `json:"kzc_to_usdt"`
	USDTToKZC        decimal.Decimal `json:"usdt_to_kzc"`
	Trend            string          `json:"trend"`
	ChangePercentage decimal.Decimal `json:"change_percentage"`
	Progress         decimal.Decimal `json:"progress"`
}

func (h *SwapHandler) Quote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.swaps.Quote(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("rate quote failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, rateQuoteDTO{
		SwapEnabled:      quote.SwapEnabled,
		MinSwapAmount:    quote.MinSwapAmount,
		SwapFee:          quote.SwapFee,
		KZCToUSDT:        quote.KZCToUSDT,
		USDTToKZC:        quote.USDTToKZC,
		Trend:            string(quote.Trend),
		ChangePercentage: quote.ChangePercentage,
		Progress:         quote.Progress,
	})
}

type executeSwapRequest struct {
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Amount       decimal.Decimal `json:"amount"`
	PIN          string          `json:"pin"`
}

func (r executeSwapRequest) Validate() []FieldError {
	var errs []FieldError

	if r.FromCurrency == "" {
		errs = append(errs, FieldError{Field: "from_currency", Message: "required"})
	} else if !domain.Currency(r.FromCurrency).IsValid() {
		errs = append(errs, FieldError{Field: "from_currency", Message: "must be KZC or USDT"})
	}

	if r.ToCurrency == "" {
		errs = append(errs, FieldError{Field: "to_currency", Message: "required"})
	} else if !domain.Currency(r.ToCurrency).IsValid() {
		errs = append(errs, FieldError{Field: "to_currency", Message: "must be KZC or USDT"})
	}

	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}

	if r.PIN == "" {
		errs = append(errs, FieldError{Field: "pin", Message: "required"})
	}

	return errs
}

type swapDTO struct {
	ID           uuid.UUID       `json:"id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	FromAmount   decimal.Decimal `json:"from_amount"`
	ToAmount     decimal.Decimal `json:"to_amount"`
	Rate         decimal.Decimal `json:"rate"`
	Fee          decimal.Decimal `json:"fee"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toSwapDTO(s *domain.Swap) swapDTO {
	return swapDTO{
		ID:           s.ID,
		FromCurrency: string(s.FromCurrency),
		ToCurrency:   string(s.ToCurrency),
		FromAmount:   s.FromAmount,
		ToAmount:     s.ToAmount,
		Rate:         s.Rate,
		Fee:          s.Fee,
		CreatedAt:    s.CreatedAt,
	}
}

func (h *SwapHandler) Execute(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req executeSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	result, err := h.swaps.Execute(r.Context(), swap.ExecuteRequest{
		UserID:       userID,
		FromCurrency: domain.Currency(req.FromCurrency),
		ToCurrency:   domain.Currency(req.ToCurrency),
		Amount:       req.Amount,
		PIN:          req.PIN,
	})
	if err != nil {
		log.Warn("swap failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toSwapDTO(result))
}

func (h *SwapHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit, offset := parsePagination(r)

	swaps, err := h.swaps.History(r.Context(), userID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("swap history lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]swapDTO, len(swaps))
	for i := range swaps {
		dtos[i] = toSwapDTO(&swaps[i])
	}

	RespondSuccess(w, http.StatusOK, dtos)
}
