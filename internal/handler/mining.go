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
)

type miningService interface {
	Start(ctx context.Context, userID uuid.UUID) (*domain.MiningSession, error)
	Status(ctx context.Context, userID uuid.UUID) (*domain.MiningProgress, error)
	Claim(ctx context.Context, userID uuid.UUID) (*domain.MiningSession, *domain.Transaction, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.MiningSession, error)
}

type MiningHandler struct {
	mining miningService
}

func NewMiningHandler(mining miningService) *MiningHandler {
	return &MiningHandler{mining: mining}
}

type miningSessionDTO struct {
	ID        uuid.UUID       `json:"id"`
	StartedAt time.Time       `json:"started_at"`
	EndsAt    time.Time       `json:"ends_at"`
	Reward    decimal.Decimal `json:"reward"`
	Status    string          `json:"status"`
	Claimed   bool            `json:"claimed"`
	ClaimedAt *time.Time      `json:"claimed_at,omitempty"`
}

func toMiningSessionDTO(s *domain.MiningSession) miningSessionDTO {
	return miningSessionDTO{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		EndsAt:    s.EndsAt,
		Reward:    s.Reward,
		Status:    string(s.Status),
		Claimed:   s.Claimed,
		ClaimedAt: s.ClaimedAt,
	}
}

type miningStatusDTO struct {
	Active        bool              `json:"active"`
	Session       *miningSessionDTO `json:"session,omitempty"`
	Progress      decimal.Decimal   `json:"progress"`
	CurrentReward decimal.Decimal   `json:"current_reward"`
	TotalReward   decimal.Decimal   `json:"total_reward"`
	IsComplete    bool              `json:"is_complete"`
}

func (h *MiningHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	session, err := h.mining.Start(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("mining start failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toMiningSessionDTO(session))
}

func (h *MiningHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	progress, err := h.mining.Status(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("mining status lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	if progress == nil {
		RespondSuccess(w, http.StatusOK, miningStatusDTO{
			Active:        false,
			Progress:      decimal.Zero,
			CurrentReward: decimal.Zero,
			TotalReward:   decimal.Zero,
		})
		return
	}

	session := toMiningSessionDTO(progress.Session)
	RespondSuccess(w, http.StatusOK, miningStatusDTO{
		Active:        true,
		Session:       &session,
		Progress:      progress.Progress,
		CurrentReward: progress.CurrentReward,
		TotalReward:   progress.TotalReward,
		IsComplete:    progress.IsComplete,
	})
}

func (h *MiningHandler) Claim(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	session, tx, err := h.mining.Claim(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("mining claim failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"session":     toMiningSessionDTO(session),
		"transaction": toTransactionDTO(tx),
	})
}

func (h *MiningHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit, offset := parsePagination(r)

	sessions, err := h.mining.History(r.Context(), userID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("mining history lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]miningSessionDTO, len(sessions))
	for i := range sessions {
		dtos[i] = toMiningSessionDTO(&sessions[i])
	}

	RespondSuccess(w, http.StatusOK, dtos)
}
