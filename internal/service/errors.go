package service

import (
	"errors"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
)

func isNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}

func isInvalidSession(err error) bool {
	var is *domain.ErrInvalidSession
	return errors.As(err, &is)
}

func asDuplicate(err error) (*domain.ErrDuplicate, bool) {
	var dup *domain.ErrDuplicate
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}
