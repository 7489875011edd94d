package memory

import (
	"context"
	"sync"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"
)

// MediaLedger keeps media records in memory. Unknown ids are ignored, the
// same as an UPDATE that matches no rows.
type MediaLedger struct {
	mu      sync.RWMutex
	records map[string]domain.MediaRecord
}

var _ port.MediaLedger = (*MediaLedger)(nil)

func NewMediaLedger(records ...domain.MediaRecord) *MediaLedger {
	m := &MediaLedger{records: make(map[string]domain.MediaRecord, len(records))}
	for _, r := range records {
		m.records[r.ID] = r
	}
	return m
}

func (m *MediaLedger) SetUsed(ctx context.Context, ids []string, used bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if r, ok := m.records[id]; ok {
			r.IsUsed = used
			m.records[id] = r
		}
	}
	return nil
}

// Get returns the record with the given id.
func (m *MediaLedger) Get(id string) (domain.MediaRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	return r, ok
}
