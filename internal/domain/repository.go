package domain

import (
	"context"

	"github.com/google/uuid"
)

// JobRepository defines persistence for generation jobs.
//
// MarkSucceeded and MarkFailed are conditional: they only apply to jobs
// still in Processing and report whether a row actually changed, so the
// scheduler can apply terminal transitions idempotently under
// overlapping ticks.
type JobRepository interface {
	Create(ctx context.Context, job *GenerationJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*GenerationJob, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]GenerationJob, error)
	ListProcessing(ctx context.Context, limit int) ([]GenerationJob, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID, resultURL, externalResultURL string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

// CreditLedger is the points collaborator consumed by the dispatcher.
// Its own bookkeeping rules live outside this system.
type CreditLedger interface {
	Debit(ctx context.Context, ownerID string, amount int) error
	Refund(ctx context.Context, ownerID string, amount int) error
}
