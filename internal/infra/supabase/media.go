package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/resilience"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// MediaLedger flips media.is_used through PostgREST.
type MediaLedger struct {
	client *Client
}

var _ port.MediaLedger = (*MediaLedger)(nil)

func NewMediaLedger(c *Client) *MediaLedger {
	return &MediaLedger{client: c}
}

// SetUsed issues PATCH media?id=in.(...) with {"is_used": used}.
func (m *MediaLedger) SetUsed(ctx context.Context, ids []string, used bool) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "Supabase.MediaSetUsed")
	defer span.End()
	span.SetAttributes(attribute.Int("media.count", len(ids)), attribute.Bool("media.used", used))

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	path := "media?id=" + url.QueryEscape("in.("+strings.Join(quoted, ",")+")")
	payload := map[string]any{"is_used": used}

	c := m.client
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			_, err := c.doRequest(ctx, http.MethodPatch, path, payload)
			return err
		})
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.ErrCircuitOpen{Service: "supabase/media"}
		}
		return &domain.ErrExternalService{Service: "supabase/media", Err: err}
	}
	return nil
}
