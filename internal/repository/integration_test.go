package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kzclabs/kzc-wallet/internal/domain"
	"github.com/kzclabs/kzc-wallet/internal/repository"
	"github.com/kzclabs/kzc-wallet/internal/testutil"
)

func TestUserRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	seeded := testutil.SeedTestUser(t, db, "user@test.com", "repo_user",
		testutil.WithRestrictions(domain.FeatureSwap, domain.FeatureMine),
		testutil.WithKYCStatus(domain.KYCStatusPending),
	)

	t.Run("lookups", func(t *testing.T) {
		byID, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, seeded.WalletAddress, byID.WalletAddress)
		assert.ElementsMatch(t, []domain.Feature{domain.FeatureSwap, domain.FeatureMine}, byID.Restrictions)
		assert.Equal(t, domain.KYCStatusPending, byID.KYCStatus)

		byAddr, err := repo.GetByWalletAddress(ctx, seeded.WalletAddress)
		require.NoError(t, err)
		assert.Equal(t, seeded.ID, byAddr.ID)

		byCode, err := repo.GetByReferralCode(ctx, seeded.ReferralCode)
		require.NoError(t, err)
		assert.Equal(t, seeded.ID, byCode.ID)

		_, err = repo.GetByWalletAddress(ctx, "KZCMISSING123")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("set kyc status", func(t *testing.T) {
		require.NoError(t, repo.SetKYCStatus(ctx, seeded.ID, domain.KYCStatusApproved))

		u, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.KYCStatusApproved, u.KYCStatus)

		require.ErrorIs(t, repo.SetKYCStatus(ctx, uuid.New(), domain.KYCStatusApproved), domain.ErrNotFound)
	})

	t.Run("set wallet pin", func(t *testing.T) {
		require.NoError(t, repo.SetWalletPIN(ctx, seeded.ID, "new-hash"))

		u, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.NotNil(t, u.WalletPINHash)
		assert.Equal(t, "new-hash", *u.WalletPINHash)
	})

	t.Run("list active excludes banned", func(t *testing.T) {
		banned := testutil.SeedTestUser(t, db, "banned@test.com", "repo_banned",
			testutil.WithStatus(domain.UserStatusBanned))
		suspended := testutil.SeedTestUser(t, db, "susp@test.com", "repo_susp",
			testutil.WithStatus(domain.UserStatusSuspended))

		ids, err := repo.ListActiveIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, seeded.ID)
		assert.Contains(t, ids, suspended.ID)
		assert.NotContains(t, ids, banned.ID)
	})
}

func TestAccountRepository_VersionGuard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAccountRepository(db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "acct@test.com", "repo_acct")
	acct := testutil.SeedAccount(t, db, user.ID, domain.CurrencyKZC, decimal.NewFromInt(100))

	inTx := func(t *testing.T, fn func(tx *sql.Tx) error) error {
		t.Helper()
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		defer tx.Rollback()
		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	}

	err := inTx(t, func(tx *sql.Tx) error {
		return repo.UpdateBalance(ctx, tx, acct.ID, decimal.NewFromInt(90), 1)
	})
	require.NoError(t, err)

	// A stale writer still carrying the old version must miss.
	err = inTx(t, func(tx *sql.Tx) error {
		return repo.UpdateBalance(ctx, tx, acct.ID, decimal.NewFromInt(80), 1)
	})
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	got, err := repo.GetByUserAndCurrency(ctx, user.ID, domain.CurrencyKZC)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(90)), "balance = %s", got.Balance)
	assert.Equal(t, int64(1), got.Version)
}

func TestSettingsRepository_LatestWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewSettingsRepository(db)
	ctx := context.Background()

	_, err := repo.GetLatest(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	seeded := testutil.SeedSettings(t, db, testutil.WithTransferFee(decimal.NewFromInt(1)))

	newer := *seeded
	newer.TransferFee = decimal.NewFromInt(2)
	newer.CreatedAt = seeded.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Append(ctx, &newer))

	s, err := repo.GetLatest(ctx)
	require.NoError(t, err)
	assert.True(t, s.TransferFee.Equal(decimal.NewFromInt(2)), "fee = %s", s.TransferFee)
}

func TestPriceRepository_LatestWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewPriceRepository(db)
	ctx := context.Background()

	_, err := repo.GetLatest(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	now := time.Now().UTC()
	testutil.SeedPricePhase(t, db, &domain.PricePhase{
		BasePrice:      decimal.NewFromInt(1),
		TargetPrice:    decimal.NewFromInt(2),
		Trend:          domain.TrendRising,
		PhaseStartedAt: now.Add(-2 * time.Hour),
		PhaseEndsAt:    now.Add(22 * time.Hour),
		CreatedAt:      now.Add(-2 * time.Hour),
	})
	latest := testutil.SeedPricePhase(t, db, &domain.PricePhase{
		BasePrice:      decimal.NewFromInt(2),
		TargetPrice:    decimal.NewFromInt(3),
		Trend:          domain.TrendStable,
		PhaseStartedAt: now,
		PhaseEndsAt:    now.Add(24 * time.Hour),
		CreatedAt:      now,
	})

	p, err := repo.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, p.ID)
	assert.Equal(t, domain.TrendStable, p.Trend)
}

func TestTransactionRepository_HoldLatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	ctx := context.Background()

	txn := &domain.Transaction{
		ID:              uuid.New(),
		Hash:            "0xKZCTESTHOLD000001",
		Kind:            domain.TransactionKindSend,
		SenderAddress:   "KZCSENDER0001",
		ReceiverAddress: "KZCRECEIVER01",
		Amount:          decimal.NewFromInt(10),
		Fee:             decimal.NewFromFloat(1.5),
		Currency:        domain.CurrencyKZC,
		Status:          domain.TransactionStatusSuccess,
		CreatedAt:       time.Now().UTC(),
	}

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, txn))
	require.NoError(t, tx.Commit())

	require.NoError(t, repo.Hold(ctx, txn.ID, "admin", time.Now().UTC()))

	// Holding a held transaction must refuse.
	require.ErrorIs(t, repo.Hold(ctx, txn.ID, "admin", time.Now().UTC()), domain.ErrTransactionFinal)

	got, err := repo.GetByHash(ctx, txn.Hash)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusHeld, got.Status)
	require.NotNil(t, got.HeldBy)
	assert.Equal(t, "admin", *got.HeldBy)
}
