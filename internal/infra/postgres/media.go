package postgres

import (
	"context"
	"fmt"

	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// MediaLedger flips media.is_used in the same database as the KYC tables.
// It always runs on the pool, never inside a caller's transaction.
type MediaLedger struct {
	pool *pgxpool.Pool
}

var _ port.MediaLedger = (*MediaLedger)(nil)

func NewMediaLedger(pool *pgxpool.Pool) *MediaLedger {
	return &MediaLedger{pool: pool}
}

func (m *MediaLedger) SetUsed(ctx context.Context, ids []string, used bool) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "Postgres.MediaSetUsed")
	defer span.End()
	span.SetAttributes(attribute.Int("media.count", len(ids)), attribute.Bool("media.used", used))

	if _, err := m.pool.Exec(ctx, `UPDATE media SET is_used = $2 WHERE id = ANY($1)`, ids, used); err != nil {
		return fmt.Errorf("update media: %w", err)
	}
	return nil
}

// IsUsed reports the flag of one media record.
func (m *MediaLedger) IsUsed(ctx context.Context, id string) (bool, error) {
	var used bool
	err := m.pool.QueryRow(ctx, `SELECT is_used FROM media WHERE id = $1`, id).Scan(&used)
	return used, err
}
