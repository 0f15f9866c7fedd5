package wallet_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kzclabs/kzc-wallet/internal/domain"
	"github.com/kzclabs/kzc-wallet/internal/repository"
	"github.com/kzclabs/kzc-wallet/internal/service/wallet"
	"github.com/kzclabs/kzc-wallet/internal/testutil"
)

func setupWalletService(t *testing.T, db *sql.DB) *wallet.Service {
	t.Helper()
	return wallet.NewService(
		repository.NewUserRepository(db),
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewSettingsRepository(db),
		db,
	)
}

func assertBalance(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "balance = %s, want %s", got, want)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustParse(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func TestSend_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db)

	sender := testutil.SeedTestUser(t, db, "sender@test.com", "sender_hp")
	receiver := testutil.SeedTestUser(t, db, "receiver@test.com", "receiver_hp")
	testutil.SeedAccount(t, db, sender.ID, domain.CurrencyKZC, dec("100"))
	testutil.SeedAccount(t, db, receiver.ID, domain.CurrencyKZC, dec("5"))

	result, err := svc.Send(ctx, wallet.SendRequest{
		SenderID:        sender.ID,
		ReceiverAddress: receiver.WalletAddress,
		Amount:          dec("10"),
		Currency:        domain.CurrencyKZC,
		PIN:             testutil.TestPIN,
	})

	require.NoError(t, err)
	assert.Equal(t, "receiver_hp", result.ReceiverUsername)

	txn := result.Transaction
	assert.Equal(t, domain.TransactionKindSend, txn.Kind)
	assert.Equal(t, domain.TransactionStatusSuccess, txn.Status)
	assert.Equal(t, sender.WalletAddress, txn.SenderAddress)
	assert.Equal(t, receiver.WalletAddress, txn.ReceiverAddress)
	assert.True(t, txn.Amount.Equal(dec("10")))
	assert.True(t, txn.Fee.Equal(dec("1.5")))
	assert.NotEmpty(t, txn.Hash)

	// Sender loses amount plus fee, receiver gains only the amount.
	assertBalance(t, "88.5", testutil.GetAccountBalance(t, db, sender.ID, domain.CurrencyKZC))
	assertBalance(t, "15", testutil.GetAccountBalance(t, db, receiver.ID, domain.CurrencyKZC))
}

func TestSend_InsufficientFundsForAmountPlusFee(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db)

	sender := testutil.SeedTestUser(t, db, "sender@test.com", "sender_if")
	receiver := testutil.SeedTestUser(t, db, "receiver@test.com", "receiver_if")
	// Covers the amount but not amount+fee.
	testutil.SeedAccount(t, db, sender.ID, domain.CurrencyKZC, dec("10"))
	testutil.SeedAccount(t, db, receiver.ID, domain.CurrencyKZC, dec("0"))

	_, err := svc.Send(ctx, wallet.SendRequest{
		SenderID:        sender.ID,
		ReceiverAddress: receiver.WalletAddress,
		Amount:          dec("10"),
		Currency:        domain.CurrencyKZC,
		PIN:             testutil.TestPIN,
	})

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assertBalance(t, "10", testutil.GetAccountBalance(t, db, sender.ID, domain.CurrencyKZC))
	assertBalance(t, "0", testutil.GetAccountBalance(t, db, receiver.ID, domain.CurrencyKZC))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, sender.WalletAddress))
}

func TestSend_SelfTransfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db)

	sender := testutil.SeedTestUser(t, db, "sender@test.com", "sender_st")
	testutil.SeedAccount(t, db, sender.ID, domain.CurrencyKZC, dec("100"))

	_, err := svc.Send(ctx, wallet.SendRequest{
		SenderID:        sender.ID,
		ReceiverAddress: sender.WalletAddress,
		Amount:          dec("10"),
		Currency:        domain.CurrencyKZC,
		PIN:             testutil.TestPIN,
	})

	require.ErrorIs(t, err, domain.ErrSelfTransfer)
	assertBalance(t, "100", testutil.GetAccountBalance(t, db, sender.ID, domain.CurrencyKZC))
}

func TestSend_RecipientNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db)

	sender := testutil.SeedTestUser(t, db, "sender@test.com", "sender_rnf")
	testutil.SeedAccount(t, db, sender.ID, domain.CurrencyKZC, dec("100"))

	_, err := svc.Send(ctx, wallet.SendRequest{
		SenderID:        sender.ID,
		ReceiverAddress: "KZCNOSUCHADDR",
		Amount:          dec("10"),
		Currency:        domain.CurrencyKZC,
		PIN:             testutil.TestPIN,
	})

	require.ErrorIs(t, err, domain.ErrRecipientNotFound)
}

func TestSend_PINChecks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db)

	receiver := testutil.SeedTestUser(t, db, "receiver@test.com", "receiver_pin")
	testutil.SeedAccount(t, db, receiver.ID, domain.CurrencyKZC, dec("0"))

	t.Run("wrong pin", func(t *testing.T) {
		sender := testutil.SeedTestUser(t, db, "wrongpin@test.com", "sender_wp")
		testutil.SeedAccount(t, db, sender.ID, domain.CurrencyKZC, dec("100"))

		_, err := svc.Send(ctx, wallet.SendRequest{
			SenderID:        sender.ID,
			ReceiverAddress: receiver.WalletAddress,
			Amount:          dec("10"),
			Currency:        domain.CurrencyKZC,
			PIN:             "9999",
		})

		require.ErrorIs(t, err, domain.ErrInvalidPIN)
		assertBalance(t, "100", testutil.GetAccountBalance(t, db, sender.ID, domain.CurrencyKZC))
	})

	t.Run("pin never set", func(t *testing.T) {
		sender := testutil.SeedTestUser(t, db, "nopin@test.com", "sender_np", testutil.WithoutPIN())
		testutil.SeedAccount(t, db, sender.ID, domain.CurrencyKZC, dec("100"))

		_, err := svc.Send(ctx, wallet.SendRequest{
			SenderID:        sender.ID,
			ReceiverAddress: receiver.WalletAddress,
			Amount:          dec("10"),
			Currency:        domain.CurrencyKZC,
			PIN:             testutil.TestPIN,
		})

		require.ErrorIs(t, err, domain.ErrPINNotSet)
	})
}

func TestSend_PolicyGate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db)

	receiver := testutil.SeedTestUser(t, db, "receiver@test.com", "receiver_pg")
	testutil.SeedAccount(t, db, receiver.ID, domain.CurrencyKZC, dec("0"))

	cases := []struct {
		name    string
		opts    []testutil.UserOption
		wantErr error
	}{
		{"banned", []testutil.UserOption{testutil.WithStatus(domain.UserStatusBanned)}, domain.ErrAccountBanned},
		{"suspended", []testutil.UserOption{testutil.WithStatus(domain.UserStatusSuspended)}, domain.ErrAccountSuspended},
		{"transfer restricted", []testutil.UserOption{testutil.WithRestrictions(domain.FeatureTransfer)}, domain.ErrFeatureRestricted},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			email := "gated" + string(rune('a'+i)) + "@test.com"
			sender := testutil.SeedTestUser(t, db, email, "sender_pg_"+tc.name[:3], tc.opts...)
			testutil.SeedAccount(t, db, sender.ID, domain.CurrencyKZC, dec("100"))

			_, err := svc.Send(ctx, wallet.SendRequest{
				SenderID:        sender.ID,
				ReceiverAddress: receiver.WalletAddress,
				Amount:          dec("10"),
				Currency:        domain.CurrencyKZC,
				PIN:             testutil.TestPIN,
			})

			require.ErrorIs(t, err, tc.wantErr)
			assertBalance(t, "100", testutil.GetAccountBalance(t, db, sender.ID, domain.CurrencyKZC))
			assert.Equal(t, 0, testutil.CountTransactions(t, db, sender.WalletAddress))
		})
	}
}

func TestSend_ConcurrentOverdraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db)

	sender := testutil.SeedTestUser(t, db, "sender@test.com", "sender_co")
	receiver := testutil.SeedTestUser(t, db, "receiver@test.com", "receiver_co")
	// Enough for one transfer of 10+1.5 but not two.
	testutil.SeedAccount(t, db, sender.ID, domain.CurrencyKZC, dec("15"))
	testutil.SeedAccount(t, db, receiver.ID, domain.CurrencyKZC, dec("0"))

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Send(ctx, wallet.SendRequest{
				SenderID:        sender.ID,
				ReceiverAddress: receiver.WalletAddress,
				Amount:          dec("10"),
				Currency:        domain.CurrencyKZC,
				PIN:             testutil.TestPIN,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, domain.ErrInsufficientFunds)
			failed++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assertBalance(t, "3.5", testutil.GetAccountBalance(t, db, sender.ID, domain.CurrencyKZC))
	assertBalance(t, "10", testutil.GetAccountBalance(t, db, receiver.ID, domain.CurrencyKZC))
}

func TestDistribute(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db)

	alice := testutil.SeedTestUser(t, db, "alice@test.com", "alice_d")
	bob := testutil.SeedTestUser(t, db, "bob@test.com", "bob_d")
	banned := testutil.SeedTestUser(t, db, "banned@test.com", "banned_d", testutil.WithStatus(domain.UserStatusBanned))
	testutil.SeedAccount(t, db, alice.ID, domain.CurrencyKZC, dec("0"))
	testutil.SeedAccount(t, db, bob.ID, domain.CurrencyKZC, dec("5"))
	testutil.SeedAccount(t, db, banned.ID, domain.CurrencyKZC, dec("0"))

	t.Run("single recipient", func(t *testing.T) {
		count, err := svc.Distribute(ctx, wallet.DistributeRequest{
			Username:      "alice_d",
			Amount:        dec("25"),
			Note:          "promo airdrop",
			DistributedBy: "admin",
		})

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assertBalance(t, "25", testutil.GetAccountBalance(t, db, alice.ID, domain.CurrencyKZC))
		assert.Equal(t, 1, testutil.CountTransactions(t, db, alice.WalletAddress))
	})

	t.Run("all active users", func(t *testing.T) {
		count, err := svc.Distribute(ctx, wallet.DistributeRequest{
			Amount:        dec("10"),
			Note:          "weekly bonus",
			DistributedBy: "admin",
		})

		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assertBalance(t, "35", testutil.GetAccountBalance(t, db, alice.ID, domain.CurrencyKZC))
		assertBalance(t, "15", testutil.GetAccountBalance(t, db, bob.ID, domain.CurrencyKZC))
		assertBalance(t, "0", testutil.GetAccountBalance(t, db, banned.ID, domain.CurrencyKZC))
	})
}

func TestHoldAndReverse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db)

	sender := testutil.SeedTestUser(t, db, "sender@test.com", "sender_rv")
	receiver := testutil.SeedTestUser(t, db, "receiver@test.com", "receiver_rv")
	testutil.SeedAccount(t, db, sender.ID, domain.CurrencyKZC, dec("100"))
	testutil.SeedAccount(t, db, receiver.ID, domain.CurrencyKZC, dec("0"))

	result, err := svc.Send(ctx, wallet.SendRequest{
		SenderID:        sender.ID,
		ReceiverAddress: receiver.WalletAddress,
		Amount:          dec("10"),
		Currency:        domain.CurrencyKZC,
		PIN:             testutil.TestPIN,
	})
	require.NoError(t, err)
	txnID := result.Transaction.ID

	require.NoError(t, svc.Hold(ctx, txnID, "admin"))

	var status string
	require.NoError(t, db.QueryRow(`SELECT status FROM transactions WHERE id = $1`, txnID).Scan(&status))
	assert.Equal(t, "held", status)

	require.NoError(t, svc.Reverse(ctx, txnID, "admin"))

	// Sender gets amount plus the burned fee back; the receiver only
	// ever had the amount.
	assertBalance(t, "100", testutil.GetAccountBalance(t, db, sender.ID, domain.CurrencyKZC))
	assertBalance(t, "0", testutil.GetAccountBalance(t, db, receiver.ID, domain.CurrencyKZC))

	require.NoError(t, db.QueryRow(`SELECT status FROM transactions WHERE id = $1`, txnID).Scan(&status))
	assert.Equal(t, "reversed", status)

	// Second reversal must refuse and leave balances alone.
	err = svc.Reverse(ctx, txnID, "admin")
	require.ErrorIs(t, err, domain.ErrTransactionFinal)
	assertBalance(t, "100", testutil.GetAccountBalance(t, db, sender.ID, domain.CurrencyKZC))
}

func TestReverse_SystemCredit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	testutil.SeedSettings(t, db)

	alice := testutil.SeedTestUser(t, db, "alice@test.com", "alice_rs")
	testutil.SeedAccount(t, db, alice.ID, domain.CurrencyKZC, dec("0"))

	_, err := svc.Distribute(ctx, wallet.DistributeRequest{
		Username:      "alice_rs",
		Amount:        dec("25"),
		DistributedBy: "admin",
	})
	require.NoError(t, err)

	var txnID string
	require.NoError(t, db.QueryRow(
		`SELECT id FROM transactions WHERE receiver_address = $1 AND kind = 'distribute'`,
		alice.WalletAddress,
	).Scan(&txnID))

	require.NoError(t, svc.Reverse(ctx, mustParse(t, txnID), "admin"))
	assertBalance(t, "0", testutil.GetAccountBalance(t, db, alice.ID, domain.CurrencyKZC))
}
