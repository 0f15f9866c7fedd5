package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/kzclabs/kzc-wallet/internal/domain"
)

// HashPIN hashes a wallet PIN for storage.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("HashPIN: %w", err)
	}
	return string(hash), nil
}

// VerifyPIN checks a plaintext PIN against the stored hash. A nil hash
// means the wallet PIN was never set up.
func VerifyPIN(pin string, hash *string) error {
	if hash == nil || *hash == "" {
		return domain.ErrPINNotSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*hash), []byte(pin)); err != nil {
		return domain.ErrInvalidPIN
	}
	return nil
}
