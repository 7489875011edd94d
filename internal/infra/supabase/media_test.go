package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/resilience"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/supabase"
	"go.uber.org/zap"
)

func newLedger(t *testing.T, h http.HandlerFunc) *supabase.MediaLedger {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	client := supabase.NewClient(srv.Client(), srv.URL, "service-key",
		resilience.NewCircuitBreaker("media-test", zap.NewNop()), cfg, zap.NewNop())
	return supabase.NewMediaLedger(client)
}

func TestMediaLedger_SetUsed_PatchesByIDList(t *testing.T) {
	var gotFilter, gotAuth string
	var gotBody map[string]any
	ledger := newLedger(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/rest/v1/media" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotFilter = r.URL.Query().Get("id")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("[]"))
	})

	if err := ledger.SetUsed(context.Background(), []string{"m1", "m2"}, true); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotFilter != `in.("m1","m2")` {
		t.Errorf("unexpected id filter %q", gotFilter)
	}
	if gotAuth != "Bearer service-key" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotBody["is_used"] != true {
		t.Errorf("expected is_used=true, got %v", gotBody)
	}
}

func TestMediaLedger_SetUsed_EmptyIsNoop(t *testing.T) {
	var calls int32
	ledger := newLedger(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	if err := ledger.SetUsed(context.Background(), nil, true); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no request, got %d", calls)
	}
}

func TestMediaLedger_SetUsed_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	ledger := newLedger(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad filter"}`))
	})

	err := ledger.SetUsed(context.Background(), []string{"m1"}, false)
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
}

func TestMediaLedger_SetUsed_ServerErrorRetried(t *testing.T) {
	var calls int32
	ledger := newLedger(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := ledger.SetUsed(context.Background(), []string{"m1"}, true); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected 3 calls, got %d", n)
	}
}
