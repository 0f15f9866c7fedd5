package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kzclabs/kzc-wallet/internal/auth"
	"github.com/kzclabs/kzc-wallet/internal/domain"
	"github.com/kzclabs/kzc-wallet/internal/logging"
	"github.com/kzclabs/kzc-wallet/internal/service/referral"
)

type referralService interface {
	Stats(ctx context.Context, referrerID uuid.UUID) (*referral.Stats, []domain.Referral, error)
}

type ReferralHandler struct {
	referrals referralService
}

func NewReferralHandler(referrals referralService) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

type referralDTO struct {
	ID          uuid.UUID       `json:"id"`
	ReferredID  uuid.UUID       `json:"referred_id"`
	BonusAmount decimal.Decimal `json:"bonus_amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

type referralStatsDTO struct {
	Total       int             `json:"total"`
	Completed   int             `json:"completed"`
	Pending     int             `json:"pending"`
	TotalEarned decimal.Decimal `json:"total_earned"`
	Referrals   []referralDTO   `json:"referrals"`
}

func (h *ReferralHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	stats, refs, err := h.referrals.Stats(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("referral stats lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]referralDTO, len(refs))
	for i, ref := range refs {
		dtos[i] = referralDTO{
			ID:          ref.ID,
			ReferredID:  ref.ReferredID,
			BonusAmount: ref.BonusAmount,
			Status:      string(ref.Status),
			CreatedAt:   ref.CreatedAt,
			CompletedAt: ref.CompletedAt,
		}
	}

	RespondSuccess(w, http.StatusOK, referralStatsDTO{
		Total:       stats.Total,
		Completed:   stats.Completed,
		Pending:     stats.Pending,
		TotalEarned: stats.TotalEarned,
		Referrals:   dtos,
	})
}
