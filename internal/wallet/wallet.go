// Package wallet generates the platform's opaque identifiers: wallet
// addresses, transaction hashes and referral codes. A transaction hash
// here is a unique identifier, not a cryptographic commitment.
package wallet

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	addressPrefix = "KZC"
	addressLen    = 9

	hashPrefix = "0xKZC"
	hashLen    = 14
)

const (
	addressAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	hexAlphabet     = "ABCDEF0123456789"
)

func randomString(alphabet string, n int) string {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is
			// broken; nothing sensible to do but stop.
			panic(fmt.Sprintf("wallet: read random: %v", err))
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf)
}

// NewAddress returns a fresh wallet address like KZCA7F3K9Q2BX.
// Uniqueness is enforced by the database; collisions are retried by the
// caller.
func NewAddress() string {
	return addressPrefix + randomString(addressAlphabet, addressLen)
}

// NewTransactionHash returns an opaque unique transaction identifier
// like 0xKZC3F9A01BC27E84D.
func NewTransactionHash() string {
	return hashPrefix + randomString(hexAlphabet, hashLen)
}

// NewReferralCode derives a shareable referral code from a username.
func NewReferralCode(username string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		panic(fmt.Sprintf("wallet: read random: %v", err))
	}
	return fmt.Sprintf("%s%04d", username, n.Int64())
}
