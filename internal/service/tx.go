package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"go.uber.org/zap"
)

const genericFailure = "Something went wrong"

// inTx runs fn inside one unit of work. Any error from fn rolls the unit of
// work back before it is returned.
func inTx(ctx context.Context, store port.Store, iso port.IsolationLevel, fn func(uow port.UnitOfWork) error) error {
	uow, err := store.Begin(ctx, iso)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	if err := fn(uow); err != nil {
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

// Env decides how much detail unexpected failures expose.
type Env struct {
	Development bool
}

// internal builds an ErrInternal. The detailed message is only kept in
// development.
func (e Env) internal(detail string, err error) error {
	msg := genericFailure
	if e.Development {
		msg = detail
	}
	return &domain.ErrInternal{Message: msg, Err: err}
}

// invalidRole is the error for a role value that has no reference row.
func (e Env) invalidRole(value string) error {
	if e.Development {
		return &domain.ErrValidation{Field: "role", Message: "Invalid role received"}
	}
	return &domain.ErrInternal{Message: genericFailure, Err: fmt.Errorf("unknown role %q", value)}
}

// markMedia flips media flags after a commit. Failures are logged only.
func markMedia(ctx context.Context, ledger port.MediaLedger, logger *zap.Logger, ids []string, used bool) {
	ids = compact(ids)
	if ledger == nil || len(ids) == 0 {
		return
	}
	if err := ledger.SetUsed(ctx, ids, used); err != nil {
		logger.Warn("media ledger update failed",
			zap.Strings("media_ids", ids),
			zap.Bool("used", used),
			zap.Error(err),
		)
	}
}

func compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nowOr(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}
