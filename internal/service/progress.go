package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var progressTracer = otel.Tracer("service/progress")

// ProgressTracker records completed workflow steps on KYC applications.
// The append itself is one atomic store operation, so concurrent callers
// cannot drop each other's steps.
type ProgressTracker struct {
	store port.Store
}

func NewProgressTracker(store port.Store) *ProgressTracker {
	return &ProgressTracker{store: store}
}

// MarkStep appends tag to the application's progress if it is absent. Pass
// a unit of work to take part in its transaction, or nil to run alone.
func (p *ProgressTracker) MarkStep(ctx context.Context, uow port.UnitOfWork, applicationID, tag string) ([]string, error) {
	ctx, span := progressTracer.Start(ctx, "ProgressTracker.MarkStep")
	defer span.End()
	span.SetAttributes(attribute.String("kyc.id", applicationID), attribute.String("kyc.step", tag))

	progress, err := p.repos(uow).AppendKycProgress(ctx, applicationID, tag)
	if err != nil {
		return nil, fmt.Errorf("mark step %s: %w", tag, err)
	}
	return progress, nil
}

// Progress returns the completed steps in completion order.
func (p *ProgressTracker) Progress(ctx context.Context, uow port.UnitOfWork, applicationID string) ([]string, error) {
	ctx, span := progressTracer.Start(ctx, "ProgressTracker.Progress")
	defer span.End()

	kyc, err := p.repos(uow).GetKycApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if kyc.CurrentProgress == nil {
		return []string{}, nil
	}
	return kyc.CurrentProgress, nil
}

func (p *ProgressTracker) repos(uow port.UnitOfWork) port.Repositories {
	if uow != nil {
		return uow
	}
	return p.store
}
