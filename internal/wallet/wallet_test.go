package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAddress(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		addr := NewAddress()
		assert.Len(t, addr, len(addressPrefix)+addressLen)
		assert.True(t, strings.HasPrefix(addr, addressPrefix), "address %q", addr)
		for _, c := range addr[len(addressPrefix):] {
			assert.Contains(t, addressAlphabet, string(c))
		}
		assert.False(t, seen[addr], "duplicate address %q", addr)
		seen[addr] = true
	}
}

func TestNewTransactionHash(t *testing.T) {
	hash := NewTransactionHash()
	assert.Len(t, hash, len(hashPrefix)+hashLen)
	assert.True(t, strings.HasPrefix(hash, hashPrefix), "hash %q", hash)
}

func TestNewReferralCode(t *testing.T) {
	code := NewReferralCode("satoshi")
	assert.Len(t, code, len("satoshi")+4)
	assert.True(t, strings.HasPrefix(code, "satoshi"), "code %q", code)
	for _, c := range code[len("satoshi"):] {
		assert.True(t, c >= '0' && c <= '9', "code %q", code)
	}
}
