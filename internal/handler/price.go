package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/kzclabs/kzc-wallet/internal/logging"
	"github.com/kzclabs/kzc-wallet/internal/service/price"
)

type priceService interface {
	Current(ctx context.Context) (*price.LivePrice, error)
}

type PriceHandler struct {
	prices priceService
}

func NewPriceHandler(prices priceService) *PriceHandler {
	return &PriceHandler{prices: prices}
}

type livePriceDTO struct {
	Price            decimal.Decimal `json:"price"`
	BasePrice        decimal.Decimal `json:"base_price"`
	TargetPrice      decimal.Decimal `json:"target_price"`
	Trend            string          `json:"trend"`
	ChangePercentage decimal.Decimal `json:"change_percentage"`
	Progress         decimal.Decimal `json:"progress"`
	HoursRemaining   int             `json:"hours_remaining"`
	MinutesRemaining int             `json:"minutes_remaining"`
}

func (h *PriceHandler) Current(w http.ResponseWriter, r *http.Request) {
	live, err := h.prices.Current(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("price lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, livePriceDTO{
		Price:            live.Price,
		BasePrice:        live.BasePrice,
		TargetPrice:      live.TargetPrice,
		Trend:            string(live.Trend),
		ChangePercentage: live.ChangePercentage,
		Progress:         live.Progress,
		HoursRemaining:   live.HoursRemaining,
		MinutesRemaining: live.MinutesRemaining,
	})
}
