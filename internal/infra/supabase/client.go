// Package supabase talks to the media service's Supabase PostgREST API.
// It backs the MediaLedger when uploaded files live outside the KYC database.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/bonds-kyc-engine/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	bulkhead       *resilience.Bulkhead
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:            cfg,
		logger:         logger,
	}
}

// statusError is a non-2xx PostgREST response.
type statusError struct {
	method string
	path   string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase %s %s returned %d: %s", e.method, e.path, e.status, e.body)
}

// doRequest executes an authenticated request against PostgREST. 4xx
// responses are marked permanent so they are not retried.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		reader = bytes.NewReader(raw)
	}

	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, resilience.Permanent(err)
	}

	req.Header.Set("apikey", c.serviceRoleKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		serr := &statusError{method: method, path: path, status: resp.StatusCode, body: string(body)}
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, resilience.Permanent(serr)
		}
		return nil, serr
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}
