package mining_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kzclabs/kzc-wallet/internal/domain"
	"github.com/kzclabs/kzc-wallet/internal/repository"
	"github.com/kzclabs/kzc-wallet/internal/service/mining"
	"github.com/kzclabs/kzc-wallet/internal/testutil"
)

func setupMiningService(t *testing.T, db *sql.DB) *mining.Service {
	t.Helper()
	return mining.NewService(
		repository.NewUserRepository(db),
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewMiningRepository(db),
		repository.NewSettingsRepository(db),
		db,
	)
}

func TestStart_SnapshotsRewardFromSettings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupMiningService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db, testutil.WithMiningReward(decimal.NewFromInt(7)))

	user := testutil.SeedTestUser(t, db, "miner@test.com", "miner_sn")
	testutil.SeedAccount(t, db, user.ID, domain.CurrencyKZC, decimal.Zero)

	session, err := svc.Start(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.MiningStatusActive, session.Status)
	assert.False(t, session.Claimed)
	assert.True(t, session.Reward.Equal(decimal.NewFromInt(7)), "reward = %s", session.Reward)
	assert.True(t, session.EndsAt.After(session.StartedAt))
}

func TestStart_SecondActiveSessionConflicts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupMiningService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db)

	user := testutil.SeedTestUser(t, db, "miner@test.com", "miner_cf")
	testutil.SeedAccount(t, db, user.ID, domain.CurrencyKZC, decimal.Zero)

	_, err := svc.Start(ctx, user.ID)
	require.NoError(t, err)

	_, err = svc.Start(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrActiveSessionExists)
}

func TestStart_Gates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupMiningService(t, db)
	ctx := context.Background()

	t.Run("mining disabled", func(t *testing.T) {
		testutil.SeedSettings(t, db, testutil.WithMiningEnabled(false))
		user := testutil.SeedTestUser(t, db, "disabled@test.com", "miner_dis")

		_, err := svc.Start(ctx, user.ID)
		require.ErrorIs(t, err, domain.ErrMiningDisabled)
	})

	t.Run("mine feature restricted", func(t *testing.T) {
		testutil.SeedSettings(t, db)
		user := testutil.SeedTestUser(t, db, "restricted@test.com", "miner_res",
			testutil.WithRestrictions(domain.FeatureMine))

		_, err := svc.Start(ctx, user.ID)
		require.ErrorIs(t, err, domain.ErrFeatureRestricted)
	})
}

func TestStatus_NoSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupMiningService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db)
	user := testutil.SeedTestUser(t, db, "idle@test.com", "miner_idle")

	progress, err := svc.Status(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, progress)
}

func TestClaim_TooEarly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupMiningService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db, testutil.WithMiningSessionHours(decimal.NewFromInt(24)))

	user := testutil.SeedTestUser(t, db, "early@test.com", "miner_early")
	testutil.SeedAccount(t, db, user.ID, domain.CurrencyKZC, decimal.Zero)

	_, err := svc.Start(ctx, user.ID)
	require.NoError(t, err)

	_, _, err = svc.Claim(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrSessionNotComplete)

	bal := testutil.GetAccountBalance(t, db, user.ID, domain.CurrencyKZC)
	assert.True(t, bal.IsZero(), "balance = %s", bal)
}

func TestClaim_CreditsExactlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupMiningService(t, db)
	ctx := context.Background()

	// Zero-hour sessions are claimable the moment they start.
	testutil.SeedSettings(t, db,
		testutil.WithMiningReward(decimal.NewFromInt(10)),
		testutil.WithMiningSessionHours(decimal.Zero),
	)

	user := testutil.SeedTestUser(t, db, "claimer@test.com", "miner_cl")
	testutil.SeedAccount(t, db, user.ID, domain.CurrencyKZC, decimal.Zero)

	_, err := svc.Start(ctx, user.ID)
	require.NoError(t, err)

	session, txn, err := svc.Claim(ctx, user.ID)
	require.NoError(t, err)

	assert.True(t, session.Claimed)
	assert.Equal(t, domain.MiningStatusCompleted, session.Status)
	assert.Equal(t, domain.TransactionKindMining, txn.Kind)
	assert.Equal(t, domain.SystemAddress, txn.SenderAddress)
	assert.Equal(t, user.WalletAddress, txn.ReceiverAddress)

	bal := testutil.GetAccountBalance(t, db, user.ID, domain.CurrencyKZC)
	assert.True(t, bal.Equal(decimal.NewFromInt(10)), "balance = %s", bal)

	// A second claim finds no active session left.
	_, _, err = svc.Claim(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrNoActiveSession)

	bal = testutil.GetAccountBalance(t, db, user.ID, domain.CurrencyKZC)
	assert.True(t, bal.Equal(decimal.NewFromInt(10)), "balance = %s", bal)
}

func TestClaim_ConcurrentSingleCredit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupMiningService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db,
		testutil.WithMiningReward(decimal.NewFromInt(10)),
		testutil.WithMiningSessionHours(decimal.Zero),
	)

	user := testutil.SeedTestUser(t, db, "racer@test.com", "miner_race")
	testutil.SeedAccount(t, db, user.ID, domain.CurrencyKZC, decimal.Zero)

	_, err := svc.Start(ctx, user.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Claim(ctx, user.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	bal := testutil.GetAccountBalance(t, db, user.ID, domain.CurrencyKZC)
	assert.True(t, bal.Equal(decimal.NewFromInt(10)), "balance = %s", bal)
}

func TestHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupMiningService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db, testutil.WithMiningSessionHours(decimal.Zero))

	user := testutil.SeedTestUser(t, db, "history@test.com", "miner_hist")
	testutil.SeedAccount(t, db, user.ID, domain.CurrencyKZC, decimal.Zero)

	for range 3 {
		_, err := svc.Start(ctx, user.ID)
		require.NoError(t, err)
		_, _, err = svc.Claim(ctx, user.ID)
		require.NoError(t, err)
	}

	sessions, err := svc.History(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
	for _, s := range sessions {
		assert.True(t, s.Claimed)
		assert.Equal(t, domain.MiningStatusCompleted, s.Status)
	}
}
