package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTracker_MarkStepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trustee, err := f.store.SeedTrustee(ctx, "trustee@bank.test", "9000000001")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.progress.MarkStep(ctx, nil, trustee.KycApplicationsID, domain.StepTrusteeDocuments)
		require.NoError(t, err)
	}
	got, err := f.progress.MarkStep(ctx, nil, trustee.KycApplicationsID, domain.StepTrusteeBankDetails)
	require.NoError(t, err)

	assert.Equal(t, []string{domain.StepTrusteeDocuments, domain.StepTrusteeBankDetails}, got)
}

func TestProgressTracker_ConcurrentSteps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trustee, err := f.store.SeedTrustee(ctx, "trustee@bank.test", "9000000001")
	require.NoError(t, err)

	steps := []string{
		domain.StepTrusteeDocuments,
		domain.StepTrusteeBankDetails,
		domain.StepTrusteeSignatories,
	}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		for _, s := range steps {
			wg.Add(1)
			go func(tag string) {
				defer wg.Done()
				_, _ = f.progress.MarkStep(ctx, nil, trustee.KycApplicationsID, tag)
			}(s)
		}
	}
	wg.Wait()

	got, err := f.progress.Progress(ctx, nil, trustee.KycApplicationsID)
	require.NoError(t, err)
	assert.ElementsMatch(t, steps, got)
}

func TestProgressTracker_UnknownApplication(t *testing.T) {
	f := newFixture(t)

	_, err := f.progress.Progress(context.Background(), nil, "missing")
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
}
