package service

import (
	"fmt"

	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// BcryptHasher is the bcrypt port.HashingService.
type BcryptHasher struct {
	cost int
}

var _ port.HashingService = (*BcryptHasher)(nil)

// NewBcryptHasher uses cost 12 when cost is out of bcrypt's range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcryptCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
